package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

// saveUploadedFile stores one multipart file under uploadDir and returns a
// serving URL. A missing file is not an error; the caller decides which
// documents are mandatory.
func saveUploadedFile(c *gin.Context, formKey, uploadDir string) (string, error) {
	file, header, err := c.Request.FormFile(formKey)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		return "", fmt.Errorf("error getting file from form '%s': %v", formKey, err)
	}
	defer file.Close()

	fileName := fmt.Sprintf("%s-%s", uuid.New().String(), filepath.Base(header.Filename))
	filePath := filepath.Join(uploadDir, fileName)

	out, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file on server: %v", err)
	}
	defer out.Close()

	if _, err = io.Copy(out, file); err != nil {
		return "", fmt.Errorf("failed to copy file content: %v", err)
	}

	return "/" + filepath.ToSlash(filePath), nil
}

// applySPJUploads stores each supplied completion document and records its
// URL on the request. A document absent from the form is skipped; a store
// failure aborts and returns the offending form key, so a partial upload is
// never reported as success.
func applySPJUploads(c *gin.Context, req *models.BudgetRequest, uploadDir string) (string, error) {
	docs := []struct {
		formKey string
		target  *string
	}{
		{"sppdFile", &req.SppdFileUrl},
		{"reportFile", &req.ReportFileUrl},
		{"receiptFile", &req.ReceiptFileUrl},
	}
	for _, doc := range docs {
		url, err := saveUploadedFile(c, doc.formKey, uploadDir)
		if err != nil {
			return doc.formKey, err
		}
		if url != "" {
			*doc.target = url
		}
	}
	return "", nil
}
