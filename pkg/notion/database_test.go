package notion

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fileIDFilter(value string) any {
	return mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Property == "File ID" && pf.RichText != nil && pf.RichText.Equals == value
	})
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()
	props := notionapi.Properties{"Name": Title("A1111.txt"), "File ID": Text("f1")}

	t.Run("creates", func(t *testing.T) {
		mc := new(MockClient)
		mc.On("QueryDatabase", ctx, "db-1", fileIDFilter("f1")).
			Return(&notionapi.DatabaseQueryResponse{}, nil).Once()
		mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
			return req.Parent.DatabaseID == "db-1" && len(req.Properties) == 2
		})).Return(&notionapi.Page{ID: "p1"}, nil).Once()

		created, err := Upsert(ctx, mc, "db-1", "File ID", "f1", props)
		require.NoError(t, err)
		assert.True(t, created)
		mc.AssertExpectations(t)
	})

	t.Run("updates", func(t *testing.T) {
		mc := new(MockClient)
		mc.On("QueryDatabase", ctx, "db-1", fileIDFilter("f1")).
			Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{{ID: "p9"}}}, nil).Once()
		mc.On("UpdatePage", ctx, "p9", mock.AnythingOfType("*notionapi.PageUpdateRequest")).
			Return(&notionapi.Page{ID: "p9"}, nil).Once()

		created, err := Upsert(ctx, mc, "db-1", "File ID", "f1", props)
		require.NoError(t, err)
		assert.False(t, created)
		mc.AssertExpectations(t)
	})

	t.Run("lookup error", func(t *testing.T) {
		mc := new(MockClient)
		mc.On("QueryDatabase", ctx, "db-1", mock.Anything).Return(nil, assert.AnError).Once()

		_, err := Upsert(ctx, mc, "db-1", "File ID", "f1", props)
		assert.Error(t, err)
		mc.AssertNotCalled(t, "CreatePage", mock.Anything, mock.Anything)
	})

	t.Run("create error", func(t *testing.T) {
		mc := new(MockClient)
		mc.On("QueryDatabase", ctx, "db-1", mock.Anything).Return(&notionapi.DatabaseQueryResponse{}, nil).Once()
		mc.On("CreatePage", ctx, mock.Anything).Return(nil, assert.AnError).Once()

		_, err := Upsert(ctx, mc, "db-1", "File ID", "f1", props)
		assert.Error(t, err)
	})
}

func TestProperties(t *testing.T) {
	title := Title("Invoice")
	assert.Equal(t, notionapi.PropertyTypeTitle, title.Type)
	assert.Equal(t, "Invoice", title.Title[0].Text.Content)

	text := Text("A1111")
	assert.Equal(t, notionapi.PropertyTypeRichText, text.Type)
	assert.Equal(t, "A1111", text.RichText[0].Text.Content)

	sel := Select("Invoice")
	assert.Equal(t, "Invoice", sel.Select.Name)

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	date := Date(now)
	require.NotNil(t, date.Date.Start)
	assert.True(t, time.Time(*date.Date.Start).Equal(now))
}
