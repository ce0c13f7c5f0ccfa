package dynamodb

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awsv2xray "github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
	"launch-workflow/internal/domain"
)

type Client struct {
	db        *awsv2dynamodb.Client
	tableName string
}

func NewClient(ctx context.Context, region, tableName string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	awsv2xray.AWSV2Instrumentor(&cfg.APIOptions)
	client := awsv2dynamodb.NewFromConfig(cfg)
	return &Client{db: client, tableName: tableName}, nil
}

func productPK(productID string) string { return "PRODUCT#" + productID }
func approvalSK() string                { return "APPROVAL" }
func auditSK(at time.Time, id string) string {
	return "AUDIT#" + at.UTC().Format(time.RFC3339Nano) + "#" + id
}

func isConditionalCheckFailure(err error) bool {
	var condErr *awsv2types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

// ApprovalRepository stores one item per product under PRODUCT#{id}/APPROVAL.
// The section attributes use the shared record naming ({section}_approved,
// {section}_approved_by, {section}_approved_at) because other services read
// the item directly.
type ApprovalRepository struct{ client *Client }

// AuditRepository stores one item per committed action under
// PRODUCT#{id}/AUDIT#{timestamp}#{entry-id}, so a product's trail queries in
// chronological order.
type AuditRepository struct{ client *Client }

func NewApprovalRepository(client *Client) *ApprovalRepository {
	return &ApprovalRepository{client: client}
}

func NewAuditRepository(client *Client) *AuditRepository {
	return &AuditRepository{client: client}
}

func stateItem(state domain.ProductApprovalState) map[string]any {
	item := map[string]any{
		"PK":         productPK(state.ProductID),
		"SK":         approvalSK(),
		"EntityType": "PRODUCT_APPROVAL",
		"product_id": state.ProductID,
		"status":     string(state.Status),
		"version":    state.Version,
	}
	if state.LaunchedBy == "" {
		item["launched_by"] = nil
		item["launched_at"] = nil
	} else {
		item["launched_by"] = state.LaunchedBy
		item["launched_at"] = state.LaunchedAt.UTC().Format(time.RFC3339)
	}
	for _, section := range domain.AllSections() {
		record := state.Record(section)
		item[section.ApprovedField()] = record.Approved
		if record.Approved {
			item[section.ApprovedByField()] = record.ApprovedBy
			item[section.ApprovedAtField()] = record.ApprovedAt.UTC().Format(time.RFC3339)
		} else {
			item[section.ApprovedByField()] = nil
			item[section.ApprovedAtField()] = nil
		}
	}
	return item
}

func stringAttr(item map[string]awsv2types.AttributeValue, name string) string {
	if v, ok := item[name].(*awsv2types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func boolAttr(item map[string]awsv2types.AttributeValue, name string) bool {
	if v, ok := item[name].(*awsv2types.AttributeValueMemberBOOL); ok {
		return v.Value
	}
	return false
}

func timeAttr(item map[string]awsv2types.AttributeValue, name string) time.Time {
	t, _ := time.Parse(time.RFC3339, stringAttr(item, name))
	return t
}

func numberAttr(item map[string]awsv2types.AttributeValue, name string) int64 {
	if v, ok := item[name].(*awsv2types.AttributeValueMemberN); ok {
		n, _ := strconv.ParseInt(v.Value, 10, 64)
		return n
	}
	return 0
}

func parseStateItem(productID string, item map[string]awsv2types.AttributeValue) domain.ProductApprovalState {
	state := domain.NewProductApprovalState(productID)
	state.Status = domain.Status(stringAttr(item, "status"))
	state.LaunchedBy = stringAttr(item, "launched_by")
	state.LaunchedAt = timeAttr(item, "launched_at")
	state.Version = numberAttr(item, "version")
	for _, section := range domain.AllSections() {
		state.Approvals[section] = domain.ApprovalRecord{
			Approved:   boolAttr(item, section.ApprovedField()),
			ApprovedBy: stringAttr(item, section.ApprovedByField()),
			ApprovedAt: timeAttr(item, section.ApprovedAtField()),
		}
	}
	return state
}

func (r *ApprovalRepository) Create(ctx context.Context, state domain.ProductApprovalState) error {
	av, err := attributevalue.MarshalMap(stateItem(state))
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutApprovalState", func(ctx context.Context) error {
		_, err = r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName:           aws.String(r.client.tableName),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrConflict
		}
		return err
	})
}

func (r *ApprovalRepository) Get(ctx context.Context, productID string) (domain.ProductApprovalState, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetApprovalState", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: productPK(productID)},
				"SK": &awsv2types.AttributeValueMemberS{Value: approvalSK()},
			},
		})
		return e
	})
	if err != nil {
		return domain.ProductApprovalState{}, err
	}
	if out.Item == nil {
		return domain.ProductApprovalState{}, domain.ErrNotFound
	}
	return parseStateItem(productID, out.Item), nil
}

// SaveApprovalField writes one section's three fields and bumps the version,
// conditional on the caller's expected version. A missing item also fails the
// condition and reports ErrConflict; the caller's refetch then sees
// ErrNotFound.
func (r *ApprovalRepository) SaveApprovalField(ctx context.Context, productID string, section domain.Section, record domain.ApprovalRecord, expectedVersion int64) error {
	values := map[string]awsv2types.AttributeValue{
		":a":  &awsv2types.AttributeValueMemberBOOL{Value: record.Approved},
		":v":  &awsv2types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
		":nv": &awsv2types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion+1, 10)},
	}
	if record.Approved {
		values[":b"] = &awsv2types.AttributeValueMemberS{Value: record.ApprovedBy}
		values[":t"] = &awsv2types.AttributeValueMemberS{Value: record.ApprovedAt.UTC().Format(time.RFC3339)}
	} else {
		values[":b"] = &awsv2types.AttributeValueMemberNULL{Value: true}
		values[":t"] = &awsv2types.AttributeValueMemberNULL{Value: true}
	}
	return xray.Capture(ctx, "DynamoDB.UpdateApprovalField", func(ctx context.Context) error {
		_, err := r.client.db.UpdateItem(ctx, &awsv2dynamodb.UpdateItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: productPK(productID)},
				"SK": &awsv2types.AttributeValueMemberS{Value: approvalSK()},
			},
			UpdateExpression: aws.String("SET #a = :a, #b = :b, #t = :t, #ver = :nv"),
			ExpressionAttributeNames: map[string]string{
				"#a":   section.ApprovedField(),
				"#b":   section.ApprovedByField(),
				"#t":   section.ApprovedAtField(),
				"#ver": "version",
			},
			ExpressionAttributeValues: values,
			ConditionExpression:       aws.String("attribute_exists(PK) AND #ver = :v"),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrConflict
		}
		return err
	})
}

// SaveLaunch writes status=active plus the launch metadata atomically, with
// the same version condition as SaveApprovalField.
func (r *ApprovalRepository) SaveLaunch(ctx context.Context, productID, launchedBy string, launchedAt time.Time, expectedVersion int64) error {
	return xray.Capture(ctx, "DynamoDB.UpdateLaunch", func(ctx context.Context) error {
		_, err := r.client.db.UpdateItem(ctx, &awsv2dynamodb.UpdateItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: productPK(productID)},
				"SK": &awsv2types.AttributeValueMemberS{Value: approvalSK()},
			},
			UpdateExpression: aws.String("SET #s = :s, launched_by = :lb, launched_at = :la, #ver = :nv"),
			ExpressionAttributeNames: map[string]string{
				"#s":   "status",
				"#ver": "version",
			},
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":s":  &awsv2types.AttributeValueMemberS{Value: string(domain.StatusActive)},
				":lb": &awsv2types.AttributeValueMemberS{Value: launchedBy},
				":la": &awsv2types.AttributeValueMemberS{Value: launchedAt.UTC().Format(time.RFC3339)},
				":v":  &awsv2types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
				":nv": &awsv2types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion+1, 10)},
			},
			ConditionExpression: aws.String("attribute_exists(PK) AND #ver = :v"),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrConflict
		}
		return err
	})
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	item := map[string]any{
		"PK":         productPK(entry.ProductID),
		"SK":         auditSK(entry.At, entry.ID),
		"EntityType": "AUDIT_ENTRY",
		"id":         entry.ID,
		"product_id": entry.ProductID,
		"actor":      entry.Actor,
		"action":     string(entry.Action),
		"at":         entry.At.UTC().Format(time.RFC3339Nano),
	}
	if entry.Section == "" {
		item["section"] = nil
	} else {
		item["section"] = string(entry.Section)
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutAuditEntry", func(ctx context.Context) error {
		_, err = r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName: aws.String(r.client.tableName),
			Item:      av,
		})
		return err
	})
}

func (r *AuditRepository) ListByProduct(ctx context.Context, productID string) ([]domain.AuditEntry, error) {
	var out *awsv2dynamodb.QueryOutput
	err := xray.Capture(ctx, "DynamoDB.QueryAuditEntries", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.Query(ctx, &awsv2dynamodb.QueryInput{
			TableName:              aws.String(r.client.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":pk": &awsv2types.AttributeValueMemberS{Value: productPK(productID)},
				":sk": &awsv2types.AttributeValueMemberS{Value: "AUDIT#"},
			},
		})
		return e
	})
	if err != nil {
		return nil, err
	}
	entries := make([]domain.AuditEntry, 0, len(out.Items))
	for _, item := range out.Items {
		raw := struct {
			ID      string `dynamodbav:"id"`
			Actor   string `dynamodbav:"actor"`
			Action  string `dynamodbav:"action"`
			Section string `dynamodbav:"section"`
			At      string `dynamodbav:"at"`
		}{}
		if err := attributevalue.UnmarshalMap(item, &raw); err != nil {
			return nil, err
		}
		at, _ := time.Parse(time.RFC3339Nano, raw.At)
		entries = append(entries, domain.AuditEntry{
			ID:        raw.ID,
			ProductID: productID,
			Actor:     raw.Actor,
			Action:    domain.AuditAction(raw.Action),
			Section:   domain.Section(raw.Section),
			At:        at,
		})
	}
	return entries, nil
}
