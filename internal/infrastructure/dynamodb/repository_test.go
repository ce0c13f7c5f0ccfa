package dynamodb

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"launch-workflow/internal/domain"
)

var itemTime = time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)

func TestKeys(t *testing.T) {
	assert.Equal(t, "PRODUCT#prod-1", productPK("prod-1"))
	assert.Equal(t, "APPROVAL", approvalSK())
	assert.Equal(t, "AUDIT#2025-06-02T10:30:00Z#e1", auditSK(itemTime, "e1"))
}

func TestStateItem_FieldNames(t *testing.T) {
	state := domain.NewProductApprovalState("prod-1")
	state = state.Approve(domain.SectionFinance, "u1", itemTime)

	item := stateItem(state)

	assert.Equal(t, "draft", item["status"])
	assert.Equal(t, true, item["finance_approved"])
	assert.Equal(t, "u1", item["finance_approved_by"])
	assert.Equal(t, "2025-06-02T10:30:00Z", item["finance_approved_at"])

	// unapproved sections carry explicit nulls, not missing attributes
	assert.Equal(t, false, item["marketing_approved"])
	assert.Contains(t, item, "marketing_approved_by")
	assert.Nil(t, item["marketing_approved_by"])
	assert.Nil(t, item["marketing_approved_at"])

	assert.Nil(t, item["launched_by"])
	assert.Nil(t, item["launched_at"])
}

func TestStateItem_Launched(t *testing.T) {
	state := domain.NewProductApprovalState("prod-1")
	for _, section := range domain.AllSections() {
		state = state.Approve(section, "u1", itemTime)
	}
	state, err := state.Launch("boss", itemTime.Add(time.Hour))
	require.NoError(t, err)

	item := stateItem(state)
	assert.Equal(t, "active", item["status"])
	assert.Equal(t, "boss", item["launched_by"])
	assert.Equal(t, "2025-06-02T11:30:00Z", item["launched_at"])
}

func marshalItem(t *testing.T, state domain.ProductApprovalState) map[string]awsv2types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(stateItem(state))
	require.NoError(t, err)
	return av
}

func TestParseStateItem_RoundTrip(t *testing.T) {
	state := domain.NewProductApprovalState("prod-1")
	state = state.Approve(domain.SectionLegal, "u1", itemTime)
	state = state.Approve(domain.SectionContracts, "u2", itemTime.Add(time.Minute))
	state.Version = 3

	parsed := parseStateItem("prod-1", marshalItem(t, state))

	assert.Equal(t, state.Status, parsed.Status)
	assert.Equal(t, state.Version, parsed.Version)
	assert.Empty(t, parsed.LaunchedBy)
	assert.True(t, parsed.LaunchedAt.IsZero())
	for _, section := range domain.AllSections() {
		assert.Equal(t, state.Record(section), parsed.Record(section), string(section))
	}
}

func TestParseStateItem_LaunchedRoundTrip(t *testing.T) {
	state := domain.NewProductApprovalState("prod-1")
	for _, section := range domain.AllSections() {
		state = state.Approve(section, "approver-"+string(section), itemTime)
	}
	state, err := state.Launch("boss", itemTime.Add(time.Hour))
	require.NoError(t, err)
	state.Version = 6

	parsed := parseStateItem("prod-1", marshalItem(t, state))

	assert.Equal(t, domain.StatusActive, parsed.Status)
	assert.Equal(t, "boss", parsed.LaunchedBy)
	assert.Equal(t, itemTime.Add(time.Hour), parsed.LaunchedAt)
	assert.Equal(t, int64(6), parsed.Version)
	assert.True(t, parsed.IsFullyApproved())
}

func TestIsConditionalCheckFailure(t *testing.T) {
	assert.True(t, isConditionalCheckFailure(&awsv2types.ConditionalCheckFailedException{}))
	assert.False(t, isConditionalCheckFailure(assert.AnError))
	assert.False(t, isConditionalCheckFailure(nil))
}
