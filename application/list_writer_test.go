package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spconnect/domain/lists"
	"spconnect/domain/schema"
	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
	"spconnect/test/helpers"
)

func TestListWriter_CreateMode(t *testing.T) {
	m := helpers.NewMockServices()
	td := helpers.NewTestData()
	list := td.List("abc", "Tasks", "Tasks")

	m.Client.On("RecycleList", mock.Anything, "Tasks").Return(nil)
	m.Client.On("CreateList", mock.Anything, "Tasks").Return(list, nil)
	m.ExpectFields("Tasks", []sharepoint.Field{td.Field("Title", "Title", "Text")})
	m.Client.On("CreateCustomField", mock.Anything, "abc", "Due", "DateTime").
		Return(&sharepoint.Field{StaticName: "Due", Title: "Due"}, nil)
	m.Client.On("AddColumnToDefaultView", mock.Anything, "Tasks", "Due").Return(nil)

	part := spclient.BatchPart{Method: "POST", URL: "items", Body: []byte("{}")}
	m.Client.On("AddListItemRequest", "Tasks", "SP.Data.TasksListItem", sharepoint.Item{
		"Title": "Write report",
		"Due":   "2024-01-18 14:41:46",
	}).Return(part, nil)
	m.Client.On("ProcessBatch", mock.Anything, []spclient.BatchPart{part}).Return(nil)

	connector, err := NewListConnector(m.Client, &lists.Parameters{ListTitle: "Tasks", WriteMode: sharepoint.WriteModeCreate}, logging.Discard())
	require.NoError(t, err)

	writer, err := connector.Writer(context.Background(), schema.Schema{Columns: []schema.Column{
		{Name: "Title", Type: schema.TypeString},
		{Name: "Due", Type: schema.TypeDate},
	}})
	require.NoError(t, err)

	require.NoError(t, writer.WriteRowDict(context.Background(), Row{"Title": "Write report", "Due": "2024-01-18T14:41:46.000Z"}))
	require.NoError(t, writer.Close(context.Background()))

	assert.Equal(t, int64(1), writer.Written())
	m.AssertAllExpectations(t)
}

func TestListWriter_AppendMode_MapsExistingColumns(t *testing.T) {
	m := helpers.NewMockServices()
	td := helpers.NewTestData()

	owner := td.Field("Owner0", "Owner", "Text")
	owner.EntityPropertyName = "OwnerName"
	m.Client.On("GetListMetadata", mock.Anything, "Tasks").Return(td.List("abc", "Tasks", "TaskList"), nil)
	m.ExpectFields("Tasks", []sharepoint.Field{td.Field("Title", "Title", "Text"), owner})

	m.Client.On("AddListItemRequest", "TaskList", "SP.Data.TaskListListItem", sharepoint.Item{
		"Title":     "Write report",
		"OwnerName": nil,
	}).Return(spclient.BatchPart{}, nil)
	m.Client.On("ProcessBatch", mock.Anything, mock.Anything).Return(nil)

	connector, err := NewListConnector(m.Client, &lists.Parameters{ListTitle: "Tasks", WriteMode: sharepoint.WriteModeAppend}, logging.Discard())
	require.NoError(t, err)

	writer, err := connector.Writer(context.Background(), schema.Schema{Columns: []schema.Column{
		{Name: "Title", Type: schema.TypeString},
		{Name: "Owner", Type: schema.TypeString},
	}})
	require.NoError(t, err)
	require.NoError(t, writer.WriteRowDict(context.Background(), Row{"Title": "Write report", "Owner": nil}))
	require.NoError(t, writer.Close(context.Background()))

	m.Client.AssertNotCalled(t, "RecycleList", mock.Anything, mock.Anything)
	m.Client.AssertNotCalled(t, "CreateCustomField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.AssertAllExpectations(t)
}

func TestListWriter_ExistingTypeOverridesDatasetType(t *testing.T) {
	m := helpers.NewMockServices()
	td := helpers.NewTestData()

	m.Client.On("GetListMetadata", mock.Anything, "Tasks").Return(td.List("abc", "Tasks", "Tasks"), nil)
	m.ExpectFields("Tasks", []sharepoint.Field{td.Field("Title", "Title", "Text")})
	m.Client.On("CreateCustomField", mock.Anything, "abc", "Score", "Number").
		Return(&sharepoint.Field{StaticName: "Score"}, nil)
	m.Client.On("AddColumnToDefaultView", mock.Anything, "Tasks", "Score").Return(nil)

	connector, err := NewListConnector(m.Client, &lists.Parameters{ListTitle: "Tasks", WriteMode: sharepoint.WriteModeAppend}, logging.Discard())
	require.NoError(t, err)

	_, err = connector.Writer(context.Background(), schema.Schema{Columns: []schema.Column{
		{Name: "Title", Type: schema.TypeDate},
		{Name: "Score", Type: "bigint"},
	}})
	require.NoError(t, err)
	m.Client.AssertNotCalled(t, "CreateCustomField", mock.Anything, "abc", "Title", mock.Anything)
	m.AssertAllExpectations(t)
}

func TestListWriter_ConcurrentFlush(t *testing.T) {
	m := helpers.NewMockServices()
	td := helpers.NewTestData()

	m.Client.On("GetListMetadata", mock.Anything, "Tasks").Return(td.List("abc", "Tasks", "Tasks"), nil)
	m.ExpectFields("Tasks", []sharepoint.Field{td.Field("Title", "Title", "Text")})
	m.ExpectBatchParts()
	m.Client.On("ProcessBatch", mock.Anything, mock.Anything).Return(nil)

	params := &lists.Parameters{
		ListTitle:          "Tasks",
		WriteMode:          sharepoint.WriteModeAppend,
		AdvancedParameters: true,
		MaxWorkers:         2,
		BatchSize:          2,
	}
	connector, err := NewListConnector(m.Client, params, logging.Discard())
	require.NoError(t, err)

	writer, err := connector.Writer(context.Background(), schema.Schema{Columns: []schema.Column{{Name: "Title", Type: schema.TypeString}}})
	require.NoError(t, err)

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, writer.WriteRow(context.Background(), []any{title}))
	}
	// four rows fill both workers, the fifth waits for Close
	m.Client.AssertNumberOfCalls(t, "ProcessBatch", 2)

	require.NoError(t, writer.Close(context.Background()))
	m.Client.AssertNumberOfCalls(t, "ProcessBatch", 3)
	assert.Equal(t, int64(5), writer.Written())

	for _, call := range m.Client.Calls {
		if call.Method == "ProcessBatch" {
			assert.LessOrEqual(t, len(call.Arguments.Get(1).([]spclient.BatchPart)), 2)
		}
	}
}

func TestListWriter_SequentialChunks(t *testing.T) {
	m := helpers.NewMockServices()
	td := helpers.NewTestData()

	m.Client.On("GetListMetadata", mock.Anything, "Tasks").Return(td.List("abc", "Tasks", "Tasks"), nil)
	m.ExpectFields("Tasks", []sharepoint.Field{td.Field("Title", "Title", "Text")})
	m.ExpectBatchParts()
	m.Client.On("ProcessBatch", mock.Anything, mock.Anything).Return(nil)

	connector, err := NewListConnector(m.Client, &lists.Parameters{
		ListTitle: "Tasks", WriteMode: sharepoint.WriteModeAppend,
		AdvancedParameters: true, MaxWorkers: 1, BatchSize: 3,
	}, logging.Discard())
	require.NoError(t, err)

	writer, err := connector.Writer(context.Background(), schema.Schema{Columns: []schema.Column{{Name: "Title", Type: schema.TypeString}}})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, writer.WriteRow(context.Background(), []any{"row"}))
	}
	require.NoError(t, writer.Close(context.Background()))

	m.Client.AssertNumberOfCalls(t, "ProcessBatch", 2)
	assert.Equal(t, int64(4), writer.Written())
}

func TestListWriter_BatchFailure(t *testing.T) {
	m := helpers.NewMockServices()
	td := helpers.NewTestData()

	batchErr := &spclient.BatchError{Total: 1, Failed: []spclient.BatchPartError{{Index: 0, StatusCode: 400, Message: "Column 'Due' does not exist"}}}
	m.Client.On("GetListMetadata", mock.Anything, "Tasks").Return(td.List("abc", "Tasks", "Tasks"), nil)
	m.ExpectFields("Tasks", []sharepoint.Field{td.Field("Title", "Title", "Text")})
	m.ExpectBatchParts()
	m.Client.On("ProcessBatch", mock.Anything, mock.Anything).Return(batchErr)

	connector, err := NewListConnector(m.Client, &lists.Parameters{ListTitle: "Tasks", WriteMode: sharepoint.WriteModeAppend}, logging.Discard())
	require.NoError(t, err)
	writer, err := connector.Writer(context.Background(), schema.Schema{Columns: []schema.Column{{Name: "Title", Type: schema.TypeString}}})
	require.NoError(t, err)

	require.NoError(t, writer.WriteRow(context.Background(), []any{"a"}))
	err = writer.Close(context.Background())

	var target *spclient.BatchError
	require.True(t, errors.As(err, &target))
	assert.Len(t, target.Failed, 1)
	assert.Equal(t, int64(0), writer.Written())
}
