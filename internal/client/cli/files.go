package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/socialhub/internal/models"
)

// readFile is a test seam.
var readFile = os.ReadFile

func (a *App) Upload(ctx context.Context, args []string) error {
	bucket, path, file := args[0], args[1], args[2]
	data, err := readFile(file)
	if err != nil {
		return err
	}
	opts := models.UploadOptions{
		Upsert:      len(args) > 3 && args[3] == "upsert",
		ContentType: mime.TypeByExtension(filepath.Ext(file)),
	}
	res, err := a.records.UploadFile(ctx, bucket, path, data, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Uploaded", a.records.GetPublicURL(res.Bucket, res.Path))
	return nil
}

func (a *App) URL(_ context.Context, args []string) error {
	fmt.Fprintln(a.out, a.records.GetPublicURL(args[0], args[1]))
	return nil
}

func (a *App) RemoveFiles(ctx context.Context, args []string) error {
	if err := a.records.DeleteFile(ctx, args[0], args[1:]...); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Removed")
	return nil
}

func (a *App) Files(ctx context.Context, args []string) error {
	folder := ""
	if len(args) > 1 {
		folder = args[1]
	}
	files, err := a.records.ListFiles(ctx, args[0], folder)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.ID == "" {
			fmt.Fprintf(a.out, "%s/\n", f.Name)
			continue
		}
		fmt.Fprintf(a.out, "%s\t%d\t%s\n", f.Name, f.Size, f.ContentType)
	}
	return nil
}
