package helpers

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"spconnect/domain/contracts"
	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
	"spconnect/test/mocks"
)

// MockServices holds the mocks injected into application services
type MockServices struct {
	Client *mocks.MockSharePointClient
	States *mocks.MockTriggerStateRepository
}

// NewMockServices creates a new set of mocks
func NewMockServices() *MockServices {
	return &MockServices{
		Client: &mocks.MockSharePointClient{},
		States: &mocks.MockTriggerStateRepository{},
	}
}

// ExpectFields sets up the field definitions returned for a list
func (m *MockServices) ExpectFields(listTitle string, fields []sharepoint.Field) {
	m.Client.On("GetListFields", mock.Anything, listTitle).Return(fields, nil)
}

// ExpectFolder sets up the content of a folder
func (m *MockServices) ExpectFolder(path string, files []sharepoint.File, folders []sharepoint.Folder) {
	m.Client.On("GetFiles", mock.Anything, path).Return(files, nil)
	m.Client.On("GetFolders", mock.Anything, path).Return(folders, nil)
}

// ExpectMissingFolder makes path answer 404 for files and folders
func (m *MockServices) ExpectMissingFolder(path string) {
	m.Client.On("GetFiles", mock.Anything, path).Return(nil, spclient.ErrNotFound)
	m.Client.On("GetFolders", mock.Anything, path).Return(nil, spclient.ErrNotFound)
}

// ExpectBatchParts makes AddListItemRequest echo the item as the part body
func (m *MockServices) ExpectBatchParts() {
	m.Client.On("AddListItemRequest", mock.Anything, mock.Anything, mock.Anything).
		Return(func(webName, entityType string, item sharepoint.Item) (spclient.BatchPart, error) {
			return spclient.BatchPart{Method: "POST", URL: webName, Body: []byte(fmt.Sprint(item))}, nil
		})
}

// ExpectNoState makes every key unset
func (m *MockServices) ExpectNoState() {
	m.States.On("Get", mock.Anything, mock.Anything).Return(nil, contracts.ErrStateNotFound)
}

// ExpectState sets up a stored value for key
func (m *MockServices) ExpectState(key string, value int64) {
	m.States.On("Get", mock.Anything, key).Return(&contracts.TriggerState{Key: key, Value: value}, nil)
}

// AssertAllExpectations verifies all mock expectations were met
func (m *MockServices) AssertAllExpectations(t mock.TestingT) {
	m.Client.AssertExpectations(t)
	m.States.AssertExpectations(t)
}

// TestData provides simple builders for test data
type TestData struct{}

// NewTestData creates a test data builder
func NewTestData() *TestData {
	return &TestData{}
}

// Field creates a visible field whose static and entity property names match
func (td *TestData) Field(staticName, title, typeAsString string) sharepoint.Field {
	return sharepoint.Field{
		ID:                 "f-" + staticName,
		StaticName:         staticName,
		InternalName:       staticName,
		EntityPropertyName: staticName,
		Title:              title,
		TypeAsString:       typeAsString,
	}
}

// List creates a custom list rooted at /sites/team/Lists/{webName}
func (td *TestData) List(id, title, webName string) *sharepoint.List {
	return &sharepoint.List{
		ID:                         id,
		Title:                      title,
		BaseTemplate:               100,
		ListItemEntityTypeFullName: fmt.Sprintf("SP.Data.%sListItem", webName),
		RootFolderURL:              "/sites/team/Lists/" + webName,
	}
}

// File creates a file modified at the given TimeLastModified
func (td *TestData) File(name string, size int64, modified string) sharepoint.File {
	return sharepoint.File{Name: name, Length: size, TimeLastModified: modified, Exists: true}
}

// Folder creates a folder modified at the given TimeLastModified
func (td *TestData) Folder(name, modified string) sharepoint.Folder {
	return sharepoint.Folder{Name: name, TimeLastModified: modified}
}

// Helper for common test context
func TestContext() context.Context {
	return context.Background()
}
