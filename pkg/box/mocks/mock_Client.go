// Package mocks provides test doubles for the box client.
package mocks

import (
	"context"

	box "github.com/sells-group/boxflow/pkg/box"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// GetFileRequest provides a mock function with given fields: ctx, id
func (_m *MockClient) GetFileRequest(ctx context.Context, id string) (*box.FileRequest, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetFileRequest")
	}

	var r0 *box.FileRequest
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*box.FileRequest, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *box.FileRequest); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*box.FileRequest)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CopyFileRequest provides a mock function with given fields: ctx, id, req
func (_m *MockClient) CopyFileRequest(ctx context.Context, id string, req box.FileRequestCopyRequest) (*box.FileRequest, error) {
	ret := _m.Called(ctx, id, req)

	if len(ret) == 0 {
		panic("no return value specified for CopyFileRequest")
	}

	var r0 *box.FileRequest
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, box.FileRequestCopyRequest) (*box.FileRequest, error)); ok {
		return rf(ctx, id, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, box.FileRequestCopyRequest) *box.FileRequest); ok {
		r0 = rf(ctx, id, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*box.FileRequest)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, box.FileRequestCopyRequest) error); ok {
		r1 = rf(ctx, id, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UpdateFileRequest provides a mock function with given fields: ctx, id, req
func (_m *MockClient) UpdateFileRequest(ctx context.Context, id string, req box.FileRequestUpdateRequest) (*box.FileRequest, error) {
	ret := _m.Called(ctx, id, req)

	if len(ret) == 0 {
		panic("no return value specified for UpdateFileRequest")
	}

	var r0 *box.FileRequest
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, box.FileRequestUpdateRequest) (*box.FileRequest, error)); ok {
		return rf(ctx, id, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, box.FileRequestUpdateRequest) *box.FileRequest); ok {
		r0 = rf(ctx, id, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*box.FileRequest)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, box.FileRequestUpdateRequest) error); ok {
		r1 = rf(ctx, id, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// DeleteFileRequest provides a mock function with given fields: ctx, id
func (_m *MockClient) DeleteFileRequest(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for DeleteFileRequest")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, id)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetMetadataTemplate provides a mock function with given fields: ctx, scope, templateKey
func (_m *MockClient) GetMetadataTemplate(ctx context.Context, scope string, templateKey string) (*box.MetadataTemplate, error) {
	ret := _m.Called(ctx, scope, templateKey)

	if len(ret) == 0 {
		panic("no return value specified for GetMetadataTemplate")
	}

	var r0 *box.MetadataTemplate
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*box.MetadataTemplate, error)); ok {
		return rf(ctx, scope, templateKey)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *box.MetadataTemplate); ok {
		r0 = rf(ctx, scope, templateKey)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*box.MetadataTemplate)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, scope, templateKey)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CreateMetadataTemplate provides a mock function with given fields: ctx, req
func (_m *MockClient) CreateMetadataTemplate(ctx context.Context, req box.CreateMetadataTemplateRequest) (*box.MetadataTemplate, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for CreateMetadataTemplate")
	}

	var r0 *box.MetadataTemplate
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, box.CreateMetadataTemplateRequest) (*box.MetadataTemplate, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, box.CreateMetadataTemplateRequest) *box.MetadataTemplate); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*box.MetadataTemplate)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, box.CreateMetadataTemplateRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// DeleteMetadataTemplate provides a mock function with given fields: ctx, scope, templateKey
func (_m *MockClient) DeleteMetadataTemplate(ctx context.Context, scope string, templateKey string) error {
	ret := _m.Called(ctx, scope, templateKey)

	if len(ret) == 0 {
		panic("no return value specified for DeleteMetadataTemplate")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) error); ok {
		r0 = rf(ctx, scope, templateKey)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetFileMetadata provides a mock function with given fields: ctx, fileID, scope, templateKey
func (_m *MockClient) GetFileMetadata(ctx context.Context, fileID string, scope string, templateKey string) (box.MetadataInstance, error) {
	ret := _m.Called(ctx, fileID, scope, templateKey)

	if len(ret) == 0 {
		panic("no return value specified for GetFileMetadata")
	}

	var r0 box.MetadataInstance
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) (box.MetadataInstance, error)); ok {
		return rf(ctx, fileID, scope, templateKey)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) box.MetadataInstance); ok {
		r0 = rf(ctx, fileID, scope, templateKey)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(box.MetadataInstance)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string, string) error); ok {
		r1 = rf(ctx, fileID, scope, templateKey)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CreateFileMetadata provides a mock function with given fields: ctx, fileID, scope, templateKey, values
func (_m *MockClient) CreateFileMetadata(ctx context.Context, fileID string, scope string, templateKey string, values map[string]any) (box.MetadataInstance, error) {
	ret := _m.Called(ctx, fileID, scope, templateKey, values)

	if len(ret) == 0 {
		panic("no return value specified for CreateFileMetadata")
	}

	var r0 box.MetadataInstance
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string, map[string]any) (box.MetadataInstance, error)); ok {
		return rf(ctx, fileID, scope, templateKey, values)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string, map[string]any) box.MetadataInstance); ok {
		r0 = rf(ctx, fileID, scope, templateKey, values)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(box.MetadataInstance)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string, string, map[string]any) error); ok {
		r1 = rf(ctx, fileID, scope, templateKey, values)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UpdateFileMetadata provides a mock function with given fields: ctx, fileID, scope, templateKey, ops
func (_m *MockClient) UpdateFileMetadata(ctx context.Context, fileID string, scope string, templateKey string, ops []box.MetadataOperation) (box.MetadataInstance, error) {
	ret := _m.Called(ctx, fileID, scope, templateKey, ops)

	if len(ret) == 0 {
		panic("no return value specified for UpdateFileMetadata")
	}

	var r0 box.MetadataInstance
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string, []box.MetadataOperation) (box.MetadataInstance, error)); ok {
		return rf(ctx, fileID, scope, templateKey, ops)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string, []box.MetadataOperation) box.MetadataInstance); ok {
		r0 = rf(ctx, fileID, scope, templateKey, ops)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(box.MetadataInstance)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string, string, []box.MetadataOperation) error); ok {
		r1 = rf(ctx, fileID, scope, templateKey, ops)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SuggestMetadata provides a mock function with given fields: ctx, req
func (_m *MockClient) SuggestMetadata(ctx context.Context, req box.SuggestionRequest) (*box.SuggestionResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for SuggestMetadata")
	}

	var r0 *box.SuggestionResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, box.SuggestionRequest) (*box.SuggestionResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, box.SuggestionRequest) *box.SuggestionResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*box.SuggestionResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, box.SuggestionRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// AIAsk provides a mock function with given fields: ctx, req
func (_m *MockClient) AIAsk(ctx context.Context, req box.AIAskRequest) (*box.AIResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for AIAsk")
	}

	var r0 *box.AIResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, box.AIAskRequest) (*box.AIResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, box.AIAskRequest) *box.AIResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*box.AIResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, box.AIAskRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// AITextGen provides a mock function with given fields: ctx, req
func (_m *MockClient) AITextGen(ctx context.Context, req box.AITextGenRequest) (*box.AIResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for AITextGen")
	}

	var r0 *box.AIResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, box.AITextGenRequest) (*box.AIResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, box.AITextGenRequest) *box.AIResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*box.AIResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, box.AITextGenRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// QueryMetadata provides a mock function with given fields: ctx, req
func (_m *MockClient) QueryMetadata(ctx context.Context, req box.MetadataQueryRequest) (*box.MetadataQueryResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for QueryMetadata")
	}

	var r0 *box.MetadataQueryResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, box.MetadataQueryRequest) (*box.MetadataQueryResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, box.MetadataQueryRequest) *box.MetadataQueryResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*box.MetadataQueryResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, box.MetadataQueryRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListFolderItems provides a mock function with given fields: ctx, folderID, offset, limit
func (_m *MockClient) ListFolderItems(ctx context.Context, folderID string, offset int, limit int) (*box.FolderItems, error) {
	ret := _m.Called(ctx, folderID, offset, limit)

	if len(ret) == 0 {
		panic("no return value specified for ListFolderItems")
	}

	var r0 *box.FolderItems
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int, int) (*box.FolderItems, error)); ok {
		return rf(ctx, folderID, offset, limit)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, int, int) *box.FolderItems); ok {
		r0 = rf(ctx, folderID, offset, limit)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*box.FolderItems)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, int, int) error); ok {
		r1 = rf(ctx, folderID, offset, limit)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// DownloadFile provides a mock function with given fields: ctx, fileID, maxBytes
func (_m *MockClient) DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error) {
	ret := _m.Called(ctx, fileID, maxBytes)

	if len(ret) == 0 {
		panic("no return value specified for DownloadFile")
	}

	var r0 []byte
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int64) ([]byte, error)); ok {
		return rf(ctx, fileID, maxBytes)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, int64) []byte); ok {
		r0 = rf(ctx, fileID, maxBytes)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]byte)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, int64) error); ok {
		r1 = rf(ctx, fileID, maxBytes)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
