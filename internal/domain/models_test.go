package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func TestNewProductApprovalState(t *testing.T) {
	state := NewProductApprovalState("prod-1")

	assert.Equal(t, "prod-1", state.ProductID)
	assert.Equal(t, StatusDraft, state.Status)
	assert.Len(t, state.Approvals, len(AllSections()))
	for _, section := range AllSections() {
		record := state.Record(section)
		assert.False(t, record.Approved)
		assert.True(t, record.Consistent())
	}
	assert.False(t, state.IsFullyApproved())
}

func TestApproveStampsAllThreeFields(t *testing.T) {
	state := NewProductApprovalState("prod-1")

	next := state.Approve(SectionLegal, "alex", testTime)

	record := next.Record(SectionLegal)
	assert.True(t, record.Approved)
	assert.Equal(t, "alex", record.ApprovedBy)
	assert.Equal(t, testTime, record.ApprovedAt)
	assert.True(t, record.Consistent())

	// other sections untouched
	for _, section := range AllSections() {
		if section == SectionLegal {
			continue
		}
		assert.False(t, next.Record(section).Approved)
	}
}

func TestApproveDoesNotMutateReceiver(t *testing.T) {
	state := NewProductApprovalState("prod-1")

	_ = state.Approve(SectionFinance, "alex", testTime)

	assert.False(t, state.Record(SectionFinance).Approved)
}

func TestApproveIdempotent(t *testing.T) {
	state := NewProductApprovalState("prod-1")
	once := state.Approve(SectionMarketing, "alex", testTime)

	later := testTime.Add(time.Hour)
	twice := once.Approve(SectionMarketing, "brook", later)

	assert.Equal(t, once, twice)
	assert.Equal(t, "alex", twice.Record(SectionMarketing).ApprovedBy)
	assert.Equal(t, testTime, twice.Record(SectionMarketing).ApprovedAt)
}

func TestRevokeClearsAllThreeFields(t *testing.T) {
	state := NewProductApprovalState("prod-1").Approve(SectionMarketing, "alex", testTime)

	next := state.Revoke(SectionMarketing)

	record := next.Record(SectionMarketing)
	assert.False(t, record.Approved)
	assert.Empty(t, record.ApprovedBy)
	assert.True(t, record.ApprovedAt.IsZero())
	assert.True(t, record.Consistent())
}

func TestRevokeUnapprovedIsNoop(t *testing.T) {
	state := NewProductApprovalState("prod-1")

	assert.Equal(t, state, state.Revoke(SectionContracts))
}

func approveAll(state ProductApprovalState) ProductApprovalState {
	for i, section := range AllSections() {
		state = state.Approve(section, "approver-"+string(section), testTime.Add(time.Duration(i)*time.Minute))
	}
	return state
}

func TestIsFullyApproved(t *testing.T) {
	state := NewProductApprovalState("prod-1")
	assert.False(t, state.IsFullyApproved())

	state = approveAll(state)
	assert.True(t, state.IsFullyApproved())

	assert.False(t, state.Revoke(SectionSalesOps).IsFullyApproved())
}

func TestLaunchRequiresEverySectionApproved(t *testing.T) {
	// with any single section unapproved, launch must fail
	for _, missing := range AllSections() {
		state := NewProductApprovalState("prod-1")
		for _, section := range AllSections() {
			if section == missing {
				continue
			}
			state = state.Approve(section, "alex", testTime)
		}
		assert.False(t, state.ReadyToLaunch(), "section %s unapproved", missing)
		_, err := state.Launch("casey", testTime)
		assert.ErrorIs(t, err, ErrInvalidTransition, "section %s unapproved", missing)
	}
}

func TestLaunchSucceedsWhenFullyApproved(t *testing.T) {
	state := approveAll(NewProductApprovalState("prod-1"))
	require.True(t, state.ReadyToLaunch())

	launched, err := state.Launch("casey", testTime)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, launched.Status)
	assert.Equal(t, "casey", launched.LaunchedBy)
	assert.Equal(t, testTime, launched.LaunchedAt)

	// receiver unchanged
	assert.Equal(t, StatusDraft, state.Status)
}

func TestLaunchIsOneShot(t *testing.T) {
	launched, err := approveAll(NewProductApprovalState("prod-1")).Launch("casey", testTime)
	require.NoError(t, err)

	_, err = launched.Launch("casey", testTime.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRevokeAfterLaunchKeepsStatusActive(t *testing.T) {
	launched, err := approveAll(NewProductApprovalState("prod-1")).Launch("casey", testTime)
	require.NoError(t, err)

	revoked := launched.Revoke(SectionLegal)

	assert.Equal(t, StatusActive, revoked.Status)
	assert.Equal(t, "casey", revoked.LaunchedBy)
	assert.False(t, revoked.Record(SectionLegal).Approved)
	assert.False(t, revoked.ReadyToLaunch())
}

func TestRecordConsistencyAcrossTransitions(t *testing.T) {
	// approved==false implies both companion fields empty, approved==true
	// implies both set, in every reachable state.
	state := NewProductApprovalState("prod-1")
	states := []ProductApprovalState{state}
	state = state.Approve(SectionMarketing, "alex", testTime)
	states = append(states, state)
	state = state.Approve(SectionFinance, "brook", testTime.Add(time.Minute))
	states = append(states, state)
	state = state.Revoke(SectionMarketing)
	states = append(states, state)
	state = approveAll(state)
	states = append(states, state)
	state, err := state.Launch("casey", testTime.Add(time.Hour))
	require.NoError(t, err)
	states = append(states, state)

	for i, s := range states {
		for _, section := range AllSections() {
			assert.True(t, s.Record(section).Consistent(), "state %d section %s", i, section)
		}
	}
}

func TestPersistedFieldNames(t *testing.T) {
	cases := map[Section][3]string{
		SectionMarketing: {"marketing_approved", "marketing_approved_by", "marketing_approved_at"},
		SectionFinance:   {"finance_approved", "finance_approved_by", "finance_approved_at"},
		SectionLegal:     {"legal_approved", "legal_approved_by", "legal_approved_at"},
		SectionSalesOps:  {"salesops_approved", "salesops_approved_by", "salesops_approved_at"},
		SectionContracts: {"contracts_approved", "contracts_approved_by", "contracts_approved_at"},
	}
	for section, want := range cases {
		assert.Equal(t, want[0], section.ApprovedField())
		assert.Equal(t, want[1], section.ApprovedByField())
		assert.Equal(t, want[2], section.ApprovedAtField())
	}
}

func TestParseSection(t *testing.T) {
	for _, section := range AllSections() {
		got, err := ParseSection(string(section))
		require.NoError(t, err)
		assert.Equal(t, section, got)
	}

	_, err := ParseSection("procurement")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCloneDoesNotShareApprovals(t *testing.T) {
	state := NewProductApprovalState("prod-1")
	copied := state.Clone()
	copied.Approvals[SectionLegal] = ApprovalRecord{Approved: true, ApprovedBy: "alex", ApprovedAt: testTime}

	assert.False(t, state.Record(SectionLegal).Approved)
}
