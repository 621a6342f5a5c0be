package upload

import (
	"fmt"
	"io"

	"taskchat/internal/chat"
)

// File is one uploaded file as declared by the client: raw bytes, a declared
// media type, the original name and a byte size.
type File struct {
	Name      string
	MediaType string
	Size      int64
	Content   io.Reader
}

// Pipeline validates a batch of uploaded files and persists the accepted
// ones under collision-free storage names. Batches are all-or-nothing: a
// failing call persists zero files.
type Pipeline struct {
	store    *Store
	baseURL  string
	maxBytes int64
	maxFiles int
}

func NewPipeline(store *Store, baseURL string, maxBytes int64, maxFiles int) *Pipeline {
	return &Pipeline{store: store, baseURL: baseURL, maxBytes: maxBytes, maxFiles: maxFiles}
}

// Accept validates the whole batch first, then persists. On success it
// returns one attachment per file, in input order; displayName keeps the
// original unsanitized name while the URL points at the storage name.
func (p *Pipeline) Accept(batch []File) ([]chat.Attachment, error) {
	if len(batch) == 0 {
		return nil, ErrNoAcceptedFiles
	}
	if len(batch) > p.maxFiles {
		return nil, fmt.Errorf("%w: got %d, limit %d", ErrTooManyFiles, len(batch), p.maxFiles)
	}

	// Validation pass: nothing is written until every file is accepted
	var firstReject error
	rejected := 0
	for _, f := range batch {
		switch {
		case f.Size > p.maxBytes:
			rejected++
			if firstReject == nil {
				firstReject = fmt.Errorf("%w: %q is %d bytes, limit %d", ErrSizeLimit, f.Name, f.Size, p.maxBytes)
			}
		case !Allowed(f.MediaType, f.Name):
			rejected++
			if firstReject == nil {
				firstReject = &UnsupportedTypeError{Name: f.Name, MediaType: f.MediaType}
			}
		}
	}
	if rejected == len(batch) && rejected > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAcceptedFiles, firstReject)
	}
	if firstReject != nil {
		return nil, firstReject
	}

	// Persistence pass; roll back already written files on I/O failure
	out := make([]chat.Attachment, 0, len(batch))
	var saved []string
	for _, f := range batch {
		sn := storageName(f.Name)
		if err := p.store.Save(sn, f.Content); err != nil {
			for _, name := range saved {
				_ = p.store.Remove(name)
			}
			return nil, fmt.Errorf("persist %q: %w", f.Name, err)
		}
		saved = append(saved, sn)
		out = append(out, chat.Attachment{
			Name: f.Name,
			URL:  p.baseURL + "/uploads/" + sn,
			Type: f.MediaType,
			Size: f.Size,
		})
	}
	return out, nil
}
