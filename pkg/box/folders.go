package box

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

// Item is a file, folder or web link inside a folder.
type Item struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// FolderItems is one page of GET /folders/{id}/items.
type FolderItems struct {
	TotalCount int    `json:"total_count"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
	Entries    []Item `json:"entries"`
}

func (c *httpClient) ListFolderItems(ctx context.Context, folderID string, offset, limit int) (*FolderItems, error) {
	q := url.Values{}
	q.Set("fields", "id,type,name")
	q.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var items FolderItems
	if err := c.get(ctx, fmt.Sprintf("/folders/%s/items", escape(folderID)), q, &items); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: list folder %s", folderID))
	}
	return &items, nil
}

// DownloadFile returns the first maxBytes of a file's content, or all of it
// when maxBytes is zero.
func (c *httpClient) DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/files/%s/content", c.baseURL, escape(fileID)), nil)
	if err != nil {
		return nil, eris.Wrap(err, "box: create request")
	}
	if maxBytes > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", maxBytes-1))
	}
	data, err := c.rawLimit(ctx, req, maxBytes)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: download file %s", fileID))
	}
	return data, nil
}

// ListFiles returns every file (not folders or links) directly inside
// folderID, following offset pagination.
func ListFiles(ctx context.Context, c Client, folderID string, pageSize int) ([]Item, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}
	var files []Item
	offset := 0
	for {
		page, err := c.ListFolderItems(ctx, folderID, offset, pageSize)
		if err != nil {
			return nil, eris.Wrap(err, "box: list files")
		}
		for _, it := range page.Entries {
			if it.Type == "file" {
				files = append(files, it)
			}
		}
		offset += len(page.Entries)
		if len(page.Entries) == 0 || offset >= page.TotalCount {
			break
		}
	}
	return files, nil
}
