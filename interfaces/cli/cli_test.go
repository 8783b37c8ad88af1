package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spconnect/application"
	"spconnect/database"
	"spconnect/domain/lists"
	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/config"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
	"spconnect/test/helpers"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	db := database.DefaultConfig()
	db.Path = filepath.Join(t.TempDir(), "state.db")
	return &config.AppConfig{
		HTTPAddr: ":0",
		Database: db,
		Logging:  logging.DefaultConfig(),
		Lists:    lists.DefaultParameters(),
	}
}

// execute runs the command line with args against the mocked client.
func execute(t *testing.T, m *helpers.MockServices, stdin string, args ...string) (string, error) {
	t.Helper()
	app := NewApp("1.2.3", WithConfig(testConfig(t)), WithLogger(logging.Discard()), WithClient(m.Client))
	return executeApp(app, stdin, args...)
}

func executeApp(app *App, stdin string, args ...string) (string, error) {
	root := app.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, helpers.NewMockServices(), "", "version")
	require.NoError(t, err)
	assert.Equal(t, "spconnect 1.2.3\n", out)
}

func TestSitesCommand(t *testing.T) {
	m := helpers.NewMockServices()
	m.Client.On("AvailableSitePaths", mock.Anything).Return([]sharepoint.Site{
		{Title: "Team", URL: "https://contoso.sharepoint.com/sites/team", Path: "sites/team"},
	}, nil)

	out, err := execute(t, m, "", "sites")
	require.NoError(t, err)
	assert.Contains(t, out, "Team")
	assert.Contains(t, out, "sites/team")
}

func TestListsSchemaCommand(t *testing.T) {
	m := helpers.NewMockServices()
	td := helpers.NewTestData()
	m.ExpectFields("Tasks", []sharepoint.Field{
		td.Field("Title", "Title", "Text"),
		td.Field("DueDate", "Due Date", "DateTime"),
	})

	out, err := execute(t, m, "", "lists", "schema", "--list", "Tasks")
	require.NoError(t, err)

	var got struct {
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Columns, 2)
	assert.Equal(t, "Due Date", got.Columns[1].Name)
	assert.Equal(t, "date", got.Columns[1].Type)
}

func TestListsSchemaCommand_RequiresList(t *testing.T) {
	_, err := execute(t, helpers.NewMockServices(), "", "lists", "schema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"list" not set`)
}

func TestListsReadCommand(t *testing.T) {
	m := helpers.NewMockServices()
	td := helpers.NewTestData()
	m.ExpectFields("Tasks", []sharepoint.Field{td.Field("Title", "Title", "Text")})
	m.Client.On("IterateListItems", mock.Anything, "Tasks", 5000, mock.Anything).Return([][]sharepoint.Item{
		{{"Title": "first"}, {"Title": "second"}},
		{{"Title": "third"}},
	}, nil)

	out, err := execute(t, m, "", "lists", "read", "--list", "Tasks", "--limit", "2", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, "Title\nfirst\nsecond\n", out)
}

func TestListsAppendCommand(t *testing.T) {
	m := helpers.NewMockServices()
	td := helpers.NewTestData()
	m.Client.On("GetListMetadata", mock.Anything, "Tasks").Return(td.List("abc", "Tasks", "Tasks"), nil)
	m.ExpectFields("Tasks", []sharepoint.Field{td.Field("Title", "Title", "Text")})
	m.ExpectBatchParts()
	m.Client.On("ProcessBatch", mock.Anything, mock.MatchedBy(func(parts []spclient.BatchPart) bool {
		return len(parts) == 1
	})).Return(nil).Twice()

	input := `{"Title":"a"}` + "\n" + `{"Title":"b"}` + "\n"
	out, err := execute(t, m, input, "lists", "append", "--list", "Tasks", "--format", "jsonl", "--batch-size", "1")
	require.NoError(t, err)
	assert.Equal(t, input, out)
	m.AssertAllExpectations(t)
}

func TestFSCommands(t *testing.T) {
	m := helpers.NewMockServices()
	m.Client.On("GetFileContent", mock.Anything, "/docs/in/a.csv").Return([]byte("a,b\n"), nil)
	m.Client.On("MoveFile", mock.Anything, "/docs/in/a.csv", "/docs/done/a.csv").Return(nil)

	out, err := execute(t, m, "", "fs", "--root", "docs", "get", "in/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", out)

	_, err = execute(t, m, "", "fs", "--root", "docs", "mv", "in/a.csv", "done/a.csv")
	require.NoError(t, err)
	m.AssertAllExpectations(t)
}

func TestFSStatCommand_Missing(t *testing.T) {
	m := helpers.NewMockServices()
	m.ExpectMissingFolder("/ghost.txt")
	m.ExpectFolder("/", nil, nil)

	_, err := execute(t, m, "", "fs", "stat", "ghost.txt")
	assert.ErrorIs(t, err, application.ErrItemNotFound)
}

func TestTriggerListCommand(t *testing.T) {
	m := helpers.NewMockServices()
	m.Client.On("GetListLastModified", mock.Anything, "Tasks").Return(int64(1705588906000), nil)
	app := NewApp("dev", WithConfig(testConfig(t)), WithLogger(logging.Discard()), WithClient(m.Client))

	out, err := executeApp(app, "", "trigger", "list", "Tasks")
	require.NoError(t, err)
	var first application.TriggerResult
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.True(t, first.Fired)
	assert.False(t, first.IsSet)
	assert.Equal(t, "sharepoint-online-list-trigger_Tasks", first.Key)

	// the stored value is the fire time, which is after the remote modification
	out, err = executeApp(app, "", "trigger", "list", "Tasks")
	require.NoError(t, err)
	var second application.TriggerResult
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.False(t, second.Fired)
	assert.Equal(t, first.Now, second.Stored)

	_, err = executeApp(app, "", "trigger", "reset", first.Key)
	require.NoError(t, err)
	out, err = executeApp(app, "", "trigger", "list", "Tasks")
	require.NoError(t, err)
	assert.Contains(t, out, `"fired": true`)
}
