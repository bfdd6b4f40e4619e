package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	"github.com/cognia-intellilearn/voicegate/internal/config"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	PutItemWithContext(ctx aws.Context, input *dynamodb.PutItemInput, opts ...request.Option) (*dynamodb.PutItemOutput, error)
	GetItemWithContext(ctx aws.Context, input *dynamodb.GetItemInput, opts ...request.Option) (*dynamodb.GetItemOutput, error)
	UpdateItemWithContext(ctx aws.Context, input *dynamodb.UpdateItemInput, opts ...request.Option) (*dynamodb.UpdateItemOutput, error)
	QueryPagesWithContext(ctx aws.Context, input *dynamodb.QueryInput, fn func(*dynamodb.QueryOutput, bool) bool, opts ...request.Option) error
	CreateTableWithContext(ctx aws.Context, input *dynamodb.CreateTableInput, opts ...request.Option) (*dynamodb.CreateTableOutput, error)
	WaitUntilTableExistsWithContext(ctx aws.Context, input *dynamodb.DescribeTableInput, opts ...request.WaiterOption) error
}

// maxMessageAttempts bounds the timestamp bumps PutMessage makes when two
// messages of a session land on the same millisecond.
const maxMessageAttempts = 5

// DynamoStore is a Store and ContentStore backed by three DynamoDB tables:
// sessions keyed by sessionId, conversation messages keyed by
// (sessionId, timestamp), and narrated lesson content keyed by
// (lessonId, contentId).
type DynamoStore struct {
	api                DynamoAPI
	sessionsTable      string
	conversationsTable string
	contentTable       string
	studentLessonIndex string
}

// NewDynamoStore creates a DynamoDB-backed store from an AWS session.
func NewDynamoStore(sess client.ConfigProvider, cfg config.SessionsConfig) *DynamoStore {
	return NewDynamoStoreWithAPI(dynamodb.New(sess), cfg)
}

// NewDynamoStoreWithAPI wraps an existing DynamoDB client.
func NewDynamoStoreWithAPI(api DynamoAPI, cfg config.SessionsConfig) *DynamoStore {
	return &DynamoStore{
		api:                api,
		sessionsTable:      cfg.SessionsTable,
		conversationsTable: cfg.ConversationsTable,
		contentTable:       cfg.ContentTable,
		studentLessonIndex: cfg.StudentLessonIndex,
	}
}

func (d *DynamoStore) PutSession(ctx context.Context, s *Session) error {
	av, err := dynamodbattribute.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshalling session: %w", err)
	}
	_, err = d.api.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.sessionsTable),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting session %s: %w", s.SessionID, err)
	}
	return nil
}

func (d *DynamoStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	out, err := d.api.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.sessionsTable),
		Key: map[string]*dynamodb.AttributeValue{
			"sessionId": {S: aws.String(sessionID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", sessionID, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var s Session
	if err := dynamodbattribute.UnmarshalMap(out.Item, &s); err != nil {
		return nil, fmt.Errorf("unmarshalling session %s: %w", sessionID, err)
	}
	return &s, nil
}

func (d *DynamoStore) UpdateStatus(ctx context.Context, sessionID string, status Status, currentSegment *int, updatedAt string) error {
	expr := "SET #status = :status, updatedAt = :updatedAt"
	values := map[string]*dynamodb.AttributeValue{
		":status":    {S: aws.String(string(status))},
		":updatedAt": {S: aws.String(updatedAt)},
	}
	if currentSegment != nil {
		expr += ", currentSegment = :currentSegment"
		values[":currentSegment"] = &dynamodb.AttributeValue{N: aws.String(strconv.Itoa(*currentSegment))}
	}

	_, err := d.api.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.sessionsTable),
		Key: map[string]*dynamodb.AttributeValue{
			"sessionId": {S: aws.String(sessionID)},
		},
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(sessionId)"),
		ExpressionAttributeNames:  map[string]*string{"#status": aws.String("status")},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return ErrNotFound
		}
		return fmt.Errorf("updating session %s: %w", sessionID, err)
	}
	return nil
}

func (d *DynamoStore) FindActive(ctx context.Context, studentID, lessonID string) (*Session, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.sessionsTable),
		IndexName:              aws.String(d.studentLessonIndex),
		KeyConditionExpression: aws.String("studentId = :studentId AND lessonId = :lessonId"),
		FilterExpression:       aws.String("#status = :status"),
		ExpressionAttributeNames: map[string]*string{
			"#status": aws.String("status"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":studentId": {S: aws.String(studentID)},
			":lessonId":  {S: aws.String(lessonID)},
			":status":    {S: aws.String(string(StatusActive))},
		},
	}

	var (
		latest *Session
		decErr error
	)
	err := d.api.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, _ bool) bool {
		var items []Session
		if decErr = dynamodbattribute.UnmarshalListOfMaps(page.Items, &items); decErr != nil {
			return false
		}
		for i := range items {
			if latest == nil || items[i].CreatedAt > latest.CreatedAt {
				latest = &items[i]
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("querying active session for %s/%s: %w", studentID, lessonID, err)
	}
	if decErr != nil {
		return nil, fmt.Errorf("unmarshalling sessions: %w", decErr)
	}
	return latest, nil
}

// PutMessage writes m without replacing an existing message of the same
// session. When the (sessionId, timestamp) key is taken, the timestamp is
// moved forward one millisecond and the write retried; m.Timestamp holds the
// stored value on return.
func (d *DynamoStore) PutMessage(ctx context.Context, m *Message) error {
	for attempt := 1; ; attempt++ {
		av, err := dynamodbattribute.MarshalMap(m)
		if err != nil {
			return fmt.Errorf("marshalling message: %w", err)
		}
		_, err = d.api.PutItemWithContext(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(d.conversationsTable),
			Item:                     av,
			ConditionExpression:      aws.String("attribute_not_exists(#ts)"),
			ExpressionAttributeNames: map[string]*string{"#ts": aws.String("timestamp")},
		})
		if err == nil {
			return nil
		}

		var aerr awserr.Error
		if !errors.As(err, &aerr) || aerr.Code() != dynamodb.ErrCodeConditionalCheckFailedException {
			return fmt.Errorf("putting message %s: %w", m.MessageID, err)
		}
		if attempt == maxMessageAttempts {
			return fmt.Errorf("putting message %s: timestamp %s still taken after %d attempts: %w", m.MessageID, m.Timestamp, attempt, err)
		}
		ts, perr := time.Parse(TimeFormat, m.Timestamp)
		if perr != nil {
			return fmt.Errorf("putting message %s: bumping timestamp: %w", m.MessageID, perr)
		}
		slog.Debug("conversation timestamp taken, retrying", "session_id", m.SessionID, "timestamp", m.Timestamp)
		m.Timestamp = FormatTime(ts.Add(time.Millisecond))
	}
}

func (d *DynamoStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.conversationsTable),
		KeyConditionExpression: aws.String("sessionId = :sessionId"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":sessionId": {S: aws.String(sessionID)},
		},
		ScanIndexForward: aws.Bool(true),
	}

	messages := []Message{}
	var decErr error
	err := d.api.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, _ bool) bool {
		var items []Message
		if decErr = dynamodbattribute.UnmarshalListOfMaps(page.Items, &items); decErr != nil {
			return false
		}
		messages = append(messages, items...)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", sessionID, err)
	}
	if decErr != nil {
		return nil, fmt.Errorf("unmarshalling messages: %w", decErr)
	}
	return messages, nil
}

func (d *DynamoStore) FindContent(ctx context.Context, lessonID, topic, level string) (*Content, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.contentTable),
		KeyConditionExpression: aws.String("lessonId = :lessonId"),
		FilterExpression:       aws.String("topic = :topic AND #level = :level AND isProcessed = :processed"),
		ExpressionAttributeNames: map[string]*string{
			"#level": aws.String("level"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":lessonId":  {S: aws.String(lessonID)},
			":topic":     {S: aws.String(topic)},
			":level":     {S: aws.String(level)},
			":processed": {BOOL: aws.Bool(true)},
		},
	}

	var (
		latest *Content
		decErr error
	)
	err := d.api.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, _ bool) bool {
		var items []Content
		if decErr = dynamodbattribute.UnmarshalListOfMaps(page.Items, &items); decErr != nil {
			return false
		}
		for i := range items {
			if latest == nil || items[i].CreatedAt > latest.CreatedAt {
				latest = &items[i]
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("querying voice content for lesson %s: %w", lessonID, err)
	}
	if decErr != nil {
		return nil, fmt.Errorf("unmarshalling voice content: %w", decErr)
	}
	return latest, nil
}

func (d *DynamoStore) PutContent(ctx context.Context, c *Content) error {
	av, err := dynamodbattribute.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshalling voice content: %w", err)
	}
	_, err = d.api.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.contentTable),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting voice content %s: %w", c.ContentID, err)
	}
	return nil
}

func (d *DynamoStore) CompleteContent(ctx context.Context, lessonID, contentID string, segments []AudioSegment, updatedAt string) error {
	list, err := dynamodbattribute.MarshalList(segments)
	if err != nil {
		return fmt.Errorf("marshalling segments: %w", err)
	}
	_, err = d.api.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.contentTable),
		Key: map[string]*dynamodb.AttributeValue{
			"lessonId":  {S: aws.String(lessonID)},
			"contentId": {S: aws.String(contentID)},
		},
		UpdateExpression: aws.String("SET isProcessed = :processed, segments = :segments, updatedAt = :updatedAt"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":processed": {BOOL: aws.Bool(true)},
			":segments":  {L: list},
			":updatedAt": {S: aws.String(updatedAt)},
		},
	})
	if err != nil {
		return fmt.Errorf("completing voice content %s: %w", contentID, err)
	}
	return nil
}

// CreateTables provisions the three tables (on-demand billing) and waits until
// they are active. Tables that already exist are left untouched.
func (d *DynamoStore) CreateTables(ctx context.Context) error {
	for _, input := range d.tableDefinitions() {
		name := aws.StringValue(input.TableName)
		_, err := d.api.CreateTableWithContext(ctx, input)
		if err != nil {
			var aerr awserr.Error
			if errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeResourceInUseException {
				slog.Info("dynamodb table already exists", "table", name)
				continue
			}
			return fmt.Errorf("creating table %s: %w", name, err)
		}
		slog.Info("dynamodb table creating", "table", name)
		if err := d.api.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{TableName: input.TableName}); err != nil {
			return fmt.Errorf("waiting for table %s: %w", name, err)
		}
		slog.Info("dynamodb table ready", "table", name)
	}
	return nil
}

func (d *DynamoStore) tableDefinitions() []*dynamodb.CreateTableInput {
	str := func(name string) *dynamodb.AttributeDefinition {
		return &dynamodb.AttributeDefinition{AttributeName: aws.String(name), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)}
	}
	key := func(name, keyType string) *dynamodb.KeySchemaElement {
		return &dynamodb.KeySchemaElement{AttributeName: aws.String(name), KeyType: aws.String(keyType)}
	}
	all := &dynamodb.Projection{ProjectionType: aws.String(dynamodb.ProjectionTypeAll)}
	onDemand := aws.String(dynamodb.BillingModePayPerRequest)

	return []*dynamodb.CreateTableInput{
		{
			TableName:            aws.String(d.sessionsTable),
			BillingMode:          onDemand,
			AttributeDefinitions: []*dynamodb.AttributeDefinition{str("sessionId"), str("studentId"), str("lessonId")},
			KeySchema:            []*dynamodb.KeySchemaElement{key("sessionId", dynamodb.KeyTypeHash)},
			GlobalSecondaryIndexes: []*dynamodb.GlobalSecondaryIndex{{
				IndexName:  aws.String(d.studentLessonIndex),
				KeySchema:  []*dynamodb.KeySchemaElement{key("studentId", dynamodb.KeyTypeHash), key("lessonId", dynamodb.KeyTypeRange)},
				Projection: all,
			}},
		},
		{
			TableName:            aws.String(d.conversationsTable),
			BillingMode:          onDemand,
			AttributeDefinitions: []*dynamodb.AttributeDefinition{str("sessionId"), str("timestamp"), str("studentId")},
			KeySchema:            []*dynamodb.KeySchemaElement{key("sessionId", dynamodb.KeyTypeHash), key("timestamp", dynamodb.KeyTypeRange)},
			GlobalSecondaryIndexes: []*dynamodb.GlobalSecondaryIndex{{
				IndexName:  aws.String("StudentIndex"),
				KeySchema:  []*dynamodb.KeySchemaElement{key("studentId", dynamodb.KeyTypeHash), key("timestamp", dynamodb.KeyTypeRange)},
				Projection: all,
			}},
		},
		{
			TableName:            aws.String(d.contentTable),
			BillingMode:          onDemand,
			AttributeDefinitions: []*dynamodb.AttributeDefinition{str("lessonId"), str("contentId")},
			KeySchema:            []*dynamodb.KeySchemaElement{key("lessonId", dynamodb.KeyTypeHash), key("contentId", dynamodb.KeyTypeRange)},
		},
	}
}
