package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
)

// MockSharePointClient implements spclient.SharePointClient for testing
type MockSharePointClient struct {
	mock.Mock
}

var _ spclient.SharePointClient = (*MockSharePointClient)(nil)

func (m *MockSharePointClient) FormDigest(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSharePointClient) RefreshFormDigest(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSharePointClient) GetFolders(ctx context.Context, path string) ([]sharepoint.Folder, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sharepoint.Folder), args.Error(1)
}

func (m *MockSharePointClient) GetFiles(ctx context.Context, path string) ([]sharepoint.File, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sharepoint.File), args.Error(1)
}

func (m *MockSharePointClient) GetFileContent(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSharePointClient) WriteFileContent(ctx context.Context, path string, data []byte) error {
	return m.Called(ctx, path, data).Error(0)
}

func (m *MockSharePointClient) CreateFolder(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockSharePointClient) CreatePath(ctx context.Context, filePath string) error {
	return m.Called(ctx, filePath).Error(0)
}

func (m *MockSharePointClient) MoveFile(ctx context.Context, fromPath, toPath string) error {
	return m.Called(ctx, fromPath, toPath).Error(0)
}

func (m *MockSharePointClient) RecycleFile(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockSharePointClient) RecycleFolder(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockSharePointClient) DeleteFile(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockSharePointClient) DeleteFolder(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockSharePointClient) CheckInFile(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockSharePointClient) IsFile(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockSharePointClient) GetListFields(ctx context.Context, listTitle string) ([]sharepoint.Field, error) {
	args := m.Called(ctx, listTitle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sharepoint.Field), args.Error(1)
}

func (m *MockSharePointClient) GetListMetadata(ctx context.Context, listTitle string) (*sharepoint.List, error) {
	args := m.Called(ctx, listTitle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharepoint.List), args.Error(1)
}

func (m *MockSharePointClient) GetListLastModified(ctx context.Context, listTitle string) (int64, error) {
	args := m.Called(ctx, listTitle)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSharePointClient) GetViewID(ctx context.Context, listTitle, viewTitle string) (string, error) {
	args := m.Called(ctx, listTitle, viewTitle)
	return args.String(0), args.Error(1)
}

func (m *MockSharePointClient) GetListItems(ctx context.Context, listTitle string, pageSize int, next string) (*spclient.ItemsPage, error) {
	args := m.Called(ctx, listTitle, pageSize, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*spclient.ItemsPage), args.Error(1)
}

// IterateListItems feeds the pages given as the first return value to fn,
// honouring spclient.ErrStopPaging.
func (m *MockSharePointClient) IterateListItems(ctx context.Context, listTitle string, pageSize int, fn func(items []sharepoint.Item) error) error {
	args := m.Called(ctx, listTitle, pageSize, fn)
	if pages, ok := args.Get(0).([][]sharepoint.Item); ok {
		for _, page := range pages {
			if err := fn(page); err != nil {
				if err == spclient.ErrStopPaging {
					return nil
				}
				return err
			}
		}
	}
	return args.Error(1)
}

func (m *MockSharePointClient) GetListAllItems(ctx context.Context, listTitle string, pageSize int) ([]sharepoint.Item, error) {
	args := m.Called(ctx, listTitle, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sharepoint.Item), args.Error(1)
}

func (m *MockSharePointClient) CreateList(ctx context.Context, listTitle string) (*sharepoint.List, error) {
	args := m.Called(ctx, listTitle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharepoint.List), args.Error(1)
}

func (m *MockSharePointClient) RecycleList(ctx context.Context, listTitle string) error {
	return m.Called(ctx, listTitle).Error(0)
}

func (m *MockSharePointClient) DeleteList(ctx context.Context, listTitle string) error {
	return m.Called(ctx, listTitle).Error(0)
}

func (m *MockSharePointClient) CreateCustomField(ctx context.Context, listID, fieldTitle, fieldType string) (*sharepoint.Field, error) {
	args := m.Called(ctx, listID, fieldTitle, fieldType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharepoint.Field), args.Error(1)
}

func (m *MockSharePointClient) AddColumnToDefaultView(ctx context.Context, listTitle, columnName string) error {
	return m.Called(ctx, listTitle, columnName).Error(0)
}

func (m *MockSharePointClient) AddListItem(ctx context.Context, listTitle, entityType string, item sharepoint.Item) error {
	return m.Called(ctx, listTitle, entityType, item).Error(0)
}

// AddListItemRequest accepts either a BatchPart or a builder func as return value.
func (m *MockSharePointClient) AddListItemRequest(listWebName, entityType string, item sharepoint.Item) (spclient.BatchPart, error) {
	args := m.Called(listWebName, entityType, item)
	if build, ok := args.Get(0).(func(string, string, sharepoint.Item) (spclient.BatchPart, error)); ok {
		return build(listWebName, entityType, item)
	}
	return args.Get(0).(spclient.BatchPart), args.Error(1)
}

func (m *MockSharePointClient) ProcessBatch(ctx context.Context, parts []spclient.BatchPart) error {
	return m.Called(ctx, parts).Error(0)
}

func (m *MockSharePointClient) AvailableSitePaths(ctx context.Context) ([]sharepoint.Site, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sharepoint.Site), args.Error(1)
}
