package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/chtzvt/rekorslurp/internal/compression"
)

type AzureBlobSink struct {
	account     string
	accountKey  string
	container   string
	prefix      string
	compression string
	serviceURL  string
	mu          sync.Mutex
	uploader    BlobUploader // built on first Open, set by test
}

// BlobUploader abstracts the azblob UploadStream method (for testing)
type BlobUploader interface {
	UploadStream(ctx context.Context, containerName string, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
}

// NewAzureBlobSink builds an Azure Blob Storage sink. The shared key comes
// from the account_key option or AZURE_STORAGE_KEY.
func NewAzureBlobSink(opts map[string]interface{}) (Sink, error) {
	account := stringOpt(opts, "account")
	container := stringOpt(opts, "container")
	comp := stringOpt(opts, "compression")
	if account == "" || container == "" {
		return nil, fmt.Errorf("azureblob sink requires 'account' and 'container' options")
	}
	if err := compression.Validate(comp); err != nil {
		return nil, fmt.Errorf("azureblob sink: %w", err)
	}
	key := stringOpt(opts, "account_key")
	if key == "" {
		key = os.Getenv("AZURE_STORAGE_KEY")
	}
	serviceURL := stringOpt(opts, "service_url")
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	}
	return &AzureBlobSink{
		account:     account,
		accountKey:  key,
		container:   container,
		prefix:      stringOpt(opts, "prefix"),
		compression: comp,
		serviceURL:  serviceURL,
	}, nil
}

func (a *AzureBlobSink) newClient() (BlobUploader, error) {
	if a.accountKey == "" {
		return nil, fmt.Errorf("azureblob sink: missing account key (account_key option or AZURE_STORAGE_KEY)")
	}
	cred, err := azblob.NewSharedKeyCredential(a.account, a.accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure shared key credential error: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(a.serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure blob client init error: %w", err)
	}
	return client, nil
}

// client returns the shared uploader, building it on first use.
func (a *AzureBlobSink) client() (BlobUploader, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.uploader == nil {
		c, err := a.newClient()
		if err != nil {
			return nil, err
		}
		a.uploader = c
	}
	return a.uploader, nil
}

func (a *AzureBlobSink) Open(ctx context.Context, name string) (SinkWriter, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	blobName := a.prefix + name

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := client.UploadStream(ctx, a.container, blobName, pr, nil)
		_ = pr.CloseWithError(err)
		done <- err
	}()
	w, err := compression.NewWriter(pw, a.compression)
	if err != nil {
		pw.CloseWithError(err)
		<-done
		return nil, err
	}
	return &uploadWriter{Writer: w, codec: w, pipe: pw, done: done}, nil
}

func init() {
	Register("azureblob", NewAzureBlobSink)
}
