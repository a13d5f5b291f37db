package api

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/iudanet/aiinterview/internal/client/notify"
	pkgapi "github.com/iudanet/aiinterview/pkg/api"
)

// Имена файлов по умолчанию, если сервер не прислал content-disposition
const (
	DefaultSelectedExport = "selected_export.xlsx"
	DefaultProjectExport  = "all_export.xlsx"
	DefaultSessionExport  = "single_export.xlsx"
)

var filenameRe = regexp.MustCompile(`filename="?([^"\s;]+)"?`)

// ExportSelectedSessions выгружает выбранные сессии и сохраняет файл
func (c *Client) ExportSelectedSessions(ctx context.Context, sessionIDs []string, defaultFilename string) (string, error) {
	if defaultFilename == "" {
		defaultFilename = DefaultSelectedExport
	}
	return c.download(ctx, pkgapi.PathExportSelected, RequestOptions{
		Method: http.MethodPost,
		Body:   pkgapi.ExportSelectedRequest{SessionIDs: sessionIDs},
	}, defaultFilename)
}

// ExportProjectSessions выгружает все сессии проекта
func (c *Client) ExportProjectSessions(ctx context.Context, projectID, defaultFilename string) (string, error) {
	if defaultFilename == "" {
		defaultFilename = DefaultProjectExport
	}
	return c.download(ctx, pkgapi.PathExportProject+"/"+url.PathEscape(projectID), RequestOptions{
		Method: http.MethodGet,
	}, defaultFilename)
}

// ExportSession выгружает одну сессию
func (c *Client) ExportSession(ctx context.Context, sessionID, defaultFilename string) (string, error) {
	if defaultFilename == "" {
		defaultFilename = DefaultSessionExport
	}
	return c.download(ctx, pkgapi.PathExportSession+"/"+url.PathEscape(sessionID), RequestOptions{
		Method: http.MethodGet,
	}, defaultFilename)
}

// download performs a binary request and writes the body into the download
// directory. Returns the path of the written file.
func (c *Client) download(ctx context.Context, endpoint string, opts RequestOptions, defaultFilename string) (string, error) {
	opts.ResponseType = ResponseBinary
	opts.ShowLoading = Bool(true)

	resp, err := c.Request(ctx, endpoint, opts)
	if err != nil {
		return "", err
	}

	name := DownloadFilename(resp.Header.Get("Content-Disposition"), defaultFilename)
	path := filepath.Join(c.downloadDir, name)
	if err := os.WriteFile(path, resp.Body, 0o644); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}

	c.logger.Info("export saved", "path", path, "bytes", len(resp.Body))
	c.notifier.Show(notify.KindSuccess, "Saved "+path)
	return path, nil
}

// DownloadFilename picks the file name from a content-disposition header,
// falling back to defaultFilename. Directory components are stripped.
func DownloadFilename(contentDisposition, defaultFilename string) string {
	name := ""
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			name = params["filename"]
		}
		if name == "" {
			if m := filenameRe.FindStringSubmatch(contentDisposition); len(m) > 1 {
				name = m[1]
			}
		}
	}

	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == "" {
		return defaultFilename
	}
	return name
}
