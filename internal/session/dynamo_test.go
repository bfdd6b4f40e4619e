package session

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognia-intellilearn/voicegate/internal/config"
)

// fakeDynamo records requests and serves canned responses.
type fakeDynamo struct {
	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	queries []*dynamodb.QueryInput
	creates []*dynamodb.CreateTableInput
	waits   []string

	item      map[string]*dynamodb.AttributeValue
	pages     [][]map[string]*dynamodb.AttributeValue
	putErrs   []error
	updateErr error
	createErr map[string]error
}

// PutItemWithContext fails with the queued errors in order, then succeeds.
func (f *fakeDynamo) PutItemWithContext(_ aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		return nil, err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItemWithContext(_ aws.Context, _ *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDynamo) UpdateItemWithContext(_ aws.Context, in *dynamodb.UpdateItemInput, _ ...request.Option) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) QueryPagesWithContext(_ aws.Context, in *dynamodb.QueryInput, fn func(*dynamodb.QueryOutput, bool) bool, _ ...request.Option) error {
	f.queries = append(f.queries, in)
	for i, items := range f.pages {
		if !fn(&dynamodb.QueryOutput{Items: items}, i == len(f.pages)-1) {
			break
		}
	}
	return nil
}

func (f *fakeDynamo) CreateTableWithContext(_ aws.Context, in *dynamodb.CreateTableInput, _ ...request.Option) (*dynamodb.CreateTableOutput, error) {
	f.creates = append(f.creates, in)
	return &dynamodb.CreateTableOutput{}, f.createErr[aws.StringValue(in.TableName)]
}

func (f *fakeDynamo) WaitUntilTableExistsWithContext(_ aws.Context, in *dynamodb.DescribeTableInput, _ ...request.WaiterOption) error {
	f.waits = append(f.waits, aws.StringValue(in.TableName))
	return nil
}

var testSessionsConfig = config.SessionsConfig{
	SessionsTable:      "intellilearn-voice-sessions",
	ConversationsTable: "intellilearn-voice-conversations",
	ContentTable:       "intellilearn-voice-content",
	StudentLessonIndex: "StudentLessonIndex",
}

func mustMarshal(t *testing.T, v any) map[string]*dynamodb.AttributeValue {
	t.Helper()
	av, err := dynamodbattribute.MarshalMap(v)
	require.NoError(t, err)
	return av
}

func TestDynamoPutSession(t *testing.T) {
	api := &fakeDynamo{}
	store := NewDynamoStoreWithAPI(api, testSessionsConfig)

	sess := &Session{SessionID: "vs_1", StudentID: "s1", LessonID: "l1", Status: StatusActive, Config: lessonConfig}
	require.NoError(t, store.PutSession(context.Background(), sess))

	require.Len(t, api.puts, 1)
	put := api.puts[0]
	assert.Equal(t, "intellilearn-voice-sessions", aws.StringValue(put.TableName))
	assert.Equal(t, "vs_1", aws.StringValue(put.Item["sessionId"].S))
	assert.Equal(t, "active", aws.StringValue(put.Item["status"].S))
	assert.Equal(t, "calm", aws.StringValue(put.Item["config"].M["voiceStyle"].S))
}

func TestDynamoGetSession(t *testing.T) {
	want := Session{SessionID: "vs_1", StudentID: "s1", LessonID: "l1", Status: StatusPaused, CurrentSegment: 2}
	api := &fakeDynamo{item: mustMarshal(t, want)}
	store := NewDynamoStoreWithAPI(api, testSessionsConfig)

	got, err := store.GetSession(context.Background(), "vs_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusPaused, got.Status)
	assert.Equal(t, 2, got.CurrentSegment)

	api.item = nil
	got, err = store.GetSession(context.Background(), "vs_2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDynamoUpdateStatus(t *testing.T) {
	api := &fakeDynamo{}
	store := NewDynamoStoreWithAPI(api, testSessionsConfig)

	segment := 3
	require.NoError(t, store.UpdateStatus(context.Background(), "vs_1", StatusPaused, &segment, "2026-03-02T09:30:00.000Z"))
	require.NoError(t, store.UpdateStatus(context.Background(), "vs_1", StatusActive, nil, "2026-03-02T09:31:00.000Z"))

	require.Len(t, api.updates, 2)
	withSegment := api.updates[0]
	assert.Equal(t, "SET #status = :status, updatedAt = :updatedAt, currentSegment = :currentSegment", aws.StringValue(withSegment.UpdateExpression))
	assert.Equal(t, "3", aws.StringValue(withSegment.ExpressionAttributeValues[":currentSegment"].N))
	assert.Equal(t, "status", aws.StringValue(withSegment.ExpressionAttributeNames["#status"]))
	assert.Equal(t, "attribute_exists(sessionId)", aws.StringValue(withSegment.ConditionExpression))

	without := api.updates[1]
	assert.Equal(t, "SET #status = :status, updatedAt = :updatedAt", aws.StringValue(without.UpdateExpression))
	assert.NotContains(t, without.ExpressionAttributeValues, ":currentSegment")
}

func TestDynamoUpdateStatusMissing(t *testing.T) {
	api := &fakeDynamo{updateErr: awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "The conditional request failed", nil)}
	store := NewDynamoStoreWithAPI(api, testSessionsConfig)

	err := store.UpdateStatus(context.Background(), "vs_missing", StatusPaused, nil, "2026-03-02T09:30:00.000Z")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoFindActive(t *testing.T) {
	older := Session{SessionID: "vs_old", StudentID: "s1", LessonID: "l1", Status: StatusActive, CreatedAt: "2026-03-01T10:00:00.000Z"}
	newer := Session{SessionID: "vs_new", StudentID: "s1", LessonID: "l1", Status: StatusActive, CreatedAt: "2026-03-02T10:00:00.000Z"}
	api := &fakeDynamo{pages: [][]map[string]*dynamodb.AttributeValue{
		{},
		{mustMarshal(t, newer)},
		{mustMarshal(t, older)},
	}}
	store := NewDynamoStoreWithAPI(api, testSessionsConfig)

	got, err := store.FindActive(context.Background(), "s1", "l1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "vs_new", got.SessionID)

	require.Len(t, api.queries, 1)
	q := api.queries[0]
	assert.Equal(t, "StudentLessonIndex", aws.StringValue(q.IndexName))
	assert.Equal(t, "#status = :status", aws.StringValue(q.FilterExpression))
	assert.Equal(t, "active", aws.StringValue(q.ExpressionAttributeValues[":status"].S))
}

func TestDynamoFindActiveNone(t *testing.T) {
	store := NewDynamoStoreWithAPI(&fakeDynamo{}, testSessionsConfig)

	got, err := store.FindActive(context.Background(), "s1", "l1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDynamoMessages(t *testing.T) {
	api := &fakeDynamo{}
	store := NewDynamoStoreWithAPI(api, testSessionsConfig)

	msg := &Message{MessageID: "msg_1", SessionID: "vs_1", StudentID: "s1", Type: MessageSystem, Content: "Session started", Timestamp: "2026-03-02T09:30:00.000Z"}
	require.NoError(t, store.PutMessage(context.Background(), msg))
	require.Len(t, api.puts, 1)
	assert.Equal(t, "intellilearn-voice-conversations", aws.StringValue(api.puts[0].TableName))
	assert.NotContains(t, api.puts[0].Item, "audioUrl")
	assert.Equal(t, "attribute_not_exists(#ts)", aws.StringValue(api.puts[0].ConditionExpression))
	assert.Equal(t, "timestamp", aws.StringValue(api.puts[0].ExpressionAttributeNames["#ts"]))

	api.pages = [][]map[string]*dynamodb.AttributeValue{{mustMarshal(t, msg)}, {mustMarshal(t, Message{MessageID: "msg_2", SessionID: "vs_1"})}}
	history, err := store.ListMessages(context.Background(), "vs_1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "msg_1", history[0].MessageID)
	assert.Equal(t, "msg_2", history[1].MessageID)
	assert.True(t, aws.BoolValue(api.queries[0].ScanIndexForward))
}

func TestDynamoCreateTables(t *testing.T) {
	api := &fakeDynamo{createErr: map[string]error{
		"intellilearn-voice-conversations": awserr.New(dynamodb.ErrCodeResourceInUseException, "Table already exists", nil),
	}}
	store := NewDynamoStoreWithAPI(api, testSessionsConfig)

	require.NoError(t, store.CreateTables(context.Background()))

	require.Len(t, api.creates, 3)
	sessions := api.creates[0]
	assert.Equal(t, dynamodb.BillingModePayPerRequest, aws.StringValue(sessions.BillingMode))
	require.Len(t, sessions.GlobalSecondaryIndexes, 1)
	assert.Equal(t, "StudentLessonIndex", aws.StringValue(sessions.GlobalSecondaryIndexes[0].IndexName))

	content := api.creates[2]
	assert.Equal(t, "intellilearn-voice-content", aws.StringValue(content.TableName))
	require.Len(t, content.KeySchema, 2)
	assert.Equal(t, "lessonId", aws.StringValue(content.KeySchema[0].AttributeName))
	assert.Equal(t, "contentId", aws.StringValue(content.KeySchema[1].AttributeName))

	assert.Equal(t, []string{"intellilearn-voice-sessions", "intellilearn-voice-content"}, api.waits)
}

func TestDynamoPutMessageBumpsTakenTimestamp(t *testing.T) {
	taken := awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "The conditional request failed", nil)
	api := &fakeDynamo{putErrs: []error{taken, taken}}
	store := NewDynamoStoreWithAPI(api, testSessionsConfig)

	msg := &Message{MessageID: "msg_2", SessionID: "vs_1", Type: MessageAIResponse, Timestamp: "2026-03-02T09:30:00.999Z"}
	require.NoError(t, store.PutMessage(context.Background(), msg))

	require.Len(t, api.puts, 3)
	var stamps []string
	for _, put := range api.puts {
		stamps = append(stamps, aws.StringValue(put.Item["timestamp"].S))
	}
	assert.Equal(t, []string{"2026-03-02T09:30:00.999Z", "2026-03-02T09:30:01.000Z", "2026-03-02T09:30:01.001Z"}, stamps)
	assert.Equal(t, "2026-03-02T09:30:01.001Z", msg.Timestamp)
	assert.Equal(t, "msg_2", aws.StringValue(api.puts[2].Item["messageId"].S))
}

func TestDynamoPutMessageGivesUp(t *testing.T) {
	taken := awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "The conditional request failed", nil)
	api := &fakeDynamo{putErrs: []error{taken, taken, taken, taken, taken, taken}}
	store := NewDynamoStoreWithAPI(api, testSessionsConfig)

	err := store.PutMessage(context.Background(), &Message{MessageID: "msg_3", SessionID: "vs_1", Timestamp: "2026-03-02T09:30:00.000Z"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "still taken")
	assert.Len(t, api.puts, maxMessageAttempts)

	other := awserr.New("ProvisionedThroughputExceededException", "slow down", nil)
	api = &fakeDynamo{putErrs: []error{other}}
	store = NewDynamoStoreWithAPI(api, testSessionsConfig)
	err = store.PutMessage(context.Background(), &Message{MessageID: "msg_4", SessionID: "vs_1", Timestamp: "2026-03-02T09:30:00.000Z"})
	assert.ErrorIs(t, err, other)
	assert.Len(t, api.puts, 1, "only key collisions are retried")
}

func TestDynamoContent(t *testing.T) {
	older := Content{ContentID: "vc_old", LessonID: "lesson-9", Topic: "Photosynthesis", Level: "beginner", IsProcessed: true, CreatedAt: "2026-03-01T10:00:00.000Z"}
	newer := Content{ContentID: "vc_new", LessonID: "lesson-9", Topic: "Photosynthesis", Level: "beginner", IsProcessed: true, CreatedAt: "2026-03-02T10:00:00.000Z",
		Segments: []AudioSegment{{SegmentID: "seg_1_1", SequenceNumber: 1, Duration: 60, IsProcessed: true}}}
	api := &fakeDynamo{pages: [][]map[string]*dynamodb.AttributeValue{{mustMarshal(t, older), mustMarshal(t, newer)}}}
	store := NewDynamoStoreWithAPI(api, testSessionsConfig)
	ctx := context.Background()

	got, err := store.FindContent(ctx, "lesson-9", "Photosynthesis", "beginner")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "vc_new", got.ContentID)
	require.Len(t, got.Segments, 1)

	q := api.queries[0]
	assert.Equal(t, "intellilearn-voice-content", aws.StringValue(q.TableName))
	assert.Equal(t, "lessonId = :lessonId", aws.StringValue(q.KeyConditionExpression))
	assert.Equal(t, "topic = :topic AND #level = :level AND isProcessed = :processed", aws.StringValue(q.FilterExpression))
	assert.Equal(t, "level", aws.StringValue(q.ExpressionAttributeNames["#level"]))
	assert.True(t, aws.BoolValue(q.ExpressionAttributeValues[":processed"].BOOL))

	require.NoError(t, store.PutContent(ctx, &Content{ContentID: "vc_3", LessonID: "lesson-9"}))
	require.Len(t, api.puts, 1)
	assert.Equal(t, "intellilearn-voice-content", aws.StringValue(api.puts[0].TableName))
	assert.Nil(t, api.puts[0].ConditionExpression)

	segments := []AudioSegment{{SegmentID: "seg_1_1", SequenceNumber: 1, AudioURL: "https://cdn.example.com/a.mp3", Duration: 60, IsProcessed: true}}
	require.NoError(t, store.CompleteContent(ctx, "lesson-9", "vc_3", segments, "2026-03-02T10:05:00.000Z"))
	require.Len(t, api.updates, 1)
	upd := api.updates[0]
	assert.Equal(t, "vc_3", aws.StringValue(upd.Key["contentId"].S))
	assert.Equal(t, "lesson-9", aws.StringValue(upd.Key["lessonId"].S))
	require.Len(t, upd.ExpressionAttributeValues[":segments"].L, 1)
	assert.Equal(t, "https://cdn.example.com/a.mp3", aws.StringValue(upd.ExpressionAttributeValues[":segments"].L[0].M["audioUrl"].S))
}
