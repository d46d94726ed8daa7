package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// maxKnowledgeBytes bounds the reference document appended to every prompt.
const maxKnowledgeBytes = 64 * 1024

// KnowledgeProvider supplies the optional reference document used to ground
// questions that are not about numbers.
type KnowledgeProvider interface {
	// ReadOptionalDocument returns the document text and true, or false when there is none.
	ReadOptionalDocument(ctx context.Context) (string, bool, error)
}

type fileKnowledgeProvider struct {
	path   string
	logger *zap.Logger
}

// NewFileKnowledgeProvider reads the document from path on every call, so edits apply
// without a restart. An empty path means no document.
func NewFileKnowledgeProvider(path string, logger *zap.Logger) KnowledgeProvider {
	return &fileKnowledgeProvider{
		path:   path,
		logger: logger.Named("knowledge"),
	}
}

var _ KnowledgeProvider = (*fileKnowledgeProvider)(nil)

func (p *fileKnowledgeProvider) ReadOptionalDocument(ctx context.Context) (string, bool, error) {
	if p.path == "" {
		return "", false, nil
	}

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read knowledge document: %w", err)
	}

	if len(data) > maxKnowledgeBytes {
		p.logger.Warn("Knowledge document truncated",
			zap.String("path", p.path),
			zap.Int("bytes", len(data)),
			zap.Int("max_bytes", maxKnowledgeBytes))
		data = data[:maxKnowledgeBytes]
	}

	// a cut may have split a multi-byte character
	text := strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}

// StaticKnowledge is a KnowledgeProvider over a fixed string. Empty means no document.
type StaticKnowledge string

func (s StaticKnowledge) ReadOptionalDocument(context.Context) (string, bool, error) {
	if s == "" {
		return "", false, nil
	}
	return string(s), true, nil
}
