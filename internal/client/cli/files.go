package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/api"
)

// Upload encrypts and stores a local file.
func (a *App) Upload(ctx context.Context, path, category string) error {
	if !a.isOnline() {
		return a.report(errNotOnline)
	}

	f, err := a.fileService.Upload(ctx, a.session.DEK, path, category)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.w(), "Uploaded %s as %s\n", f.FileName, f.ID)
	return nil
}

// Download decrypts a stored file into the configured download directory.
func (a *App) Download(ctx context.Context, id string) error {
	if !a.isOnline() {
		return a.report(errNotOnline)
	}

	path, err := a.fileService.Download(ctx, a.session.DEK, id, a.config.DownloadDir)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.w(), "Saved to %s\n", path)
	return nil
}

// Files lists one page of stored files, optionally filtered by category.
// Offline sessions get the local catalog instead.
func (a *App) Files(ctx context.Context, category string, page int) error {
	if !a.isLoggedIn() {
		return a.report(errNotOnline)
	}
	if !a.isOnline() {
		return a.cachedFiles(ctx, category)
	}

	resp, err := a.fileService.List(ctx, &api.ListFilesRequest{Category: category, Page: page})
	if err != nil {
		return a.report(err)
	}

	if len(resp.Files) == 0 {
		fmt.Fprintln(a.w(), "No files")
		return nil
	}

	rows := make([]fileRow, 0, len(resp.Files))
	for _, f := range resp.Files {
		rows = append(rows, fileRow{f.ID, f.FileName, f.Category, f.FileSize, f.UploadStatus, f.CreatedAt})
	}
	if err := a.printFiles(rows); err != nil {
		return err
	}
	fmt.Fprintf(a.w(), "page %d\n", resp.Page)
	return nil
}

func (a *App) cachedFiles(ctx context.Context, category string) error {
	cached, err := a.fileService.Cached(ctx, category)
	if err != nil {
		return a.report(err)
	}

	if len(cached) == 0 {
		fmt.Fprintln(a.w(), "No cached files")
		return nil
	}

	rows := make([]fileRow, 0, len(cached))
	for _, f := range cached {
		rows = append(rows, fileRow{f.ID, f.FileName, f.Category, f.FileSize, f.UploadStatus, f.CreatedAt})
	}
	if err := a.printFiles(rows); err != nil {
		return err
	}
	fmt.Fprintln(a.w(), "offline, showing cached catalog")
	return nil
}

type fileRow struct {
	id, name, category string
	size               int64
	status             string
	created            time.Time
}

func (a *App) printFiles(rows []fileRow) error {
	tw := tabwriter.NewWriter(a.w(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tSIZE\tSTATUS\tCREATED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.id, r.name, r.category, r.size, r.status, r.created.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// Categories prints the categories already in use, for reuse on upload.
func (a *App) Categories(ctx context.Context) error {
	if !a.isOnline() {
		return a.report(errNotOnline)
	}

	cats, err := a.fileService.Categories(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(cats) == 0 {
		fmt.Fprintln(a.w(), "No categories")
		return nil
	}
	for _, c := range cats {
		fmt.Fprintln(a.w(), c)
	}
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	if !a.isOnline() {
		return a.report(errNotOnline)
	}

	if err := a.fileService.Delete(ctx, id); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.w(), "Deleted", id)
	return nil
}
