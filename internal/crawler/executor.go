package crawler

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/transport"
	"github.com/nao1215/sitemirror/internal/urlkey"
	"golang.org/x/crypto/sha3"
	"golang.org/x/text/encoding/htmlindex"
)

// Fetcher retrieves a URL. *transport.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
}

// Storage persists fetched bytes. *storage.Mirror implements it.
type Storage interface {
	Write(relPath string, data []byte) error
}

// Discovery holds the internal references found in a fetched document.
type Discovery struct {
	Pages  urlkey.KeySet
	Assets urlkey.KeySet
}

// Executor fetches a single URL, saves it and extracts its references.
type Executor struct {
	fetcher   Fetcher
	store     Storage
	extractor *Extractor
	timeout   time.Duration
	logger    *slog.Logger
}

// NewExecutor creates an Executor. A zero timeout leaves the deadline to the fetcher.
func NewExecutor(fetcher Fetcher, store Storage, extractor *Extractor, timeout time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		fetcher:   fetcher,
		store:     store,
		extractor: extractor,
		timeout:   timeout,
		logger:    logger,
	}
}

// FetchAndPersist performs one fetch attempt for task and returns exactly
// one outcome. Failures of any kind are reported in the outcome, never as
// an error.
//
// A successful response is stored at urlkey.RelativePath(task.Key). When the
// response is HTML (by Content-Type, or by the task kind if no Content-Type
// was sent) its links are extracted. Stylesheets yield their url() and
// @import references.
func (e *Executor) FetchAndPersist(ctx context.Context, task Task) (model.Outcome, Discovery) {
	start := time.Now()
	outcome := model.Outcome{
		URL:       task.Key.String(),
		Kind:      task.Kind,
		Result:    model.ResultFailure,
		FetchedAt: start,
	}
	fail := func(err error) (model.Outcome, Discovery) {
		outcome.Error = err.Error()
		outcome.Duration = time.Since(start)
		return outcome, Discovery{}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.fetcher.Get(ctx, task.Key.String())
	if err != nil {
		return fail(err)
	}
	outcome.StatusCode = resp.StatusCode
	outcome.ContentType = model.MediaType(resp.ContentType())

	if !resp.IsSuccess() {
		return fail(fmt.Errorf("%w %d %s", ErrUnexpectedStatus, resp.StatusCode, http.StatusText(resp.StatusCode)))
	}
	if resp.URL != "" && !e.extractor.norm.IsInternal(resp.URL) {
		return fail(fmt.Errorf("%w: %s", ErrOffsiteRedirect, resp.URL))
	}

	rel := urlkey.RelativePath(task.Key)
	if err := e.store.Write(rel, resp.Body); err != nil {
		return fail(err)
	}

	digest := sha3.Sum256(resp.Body)
	outcome.Result = model.ResultSuccess
	outcome.Path = filepath.ToSlash(rel)
	outcome.Bytes = int64(len(resp.Body))
	outcome.Digest = hex.EncodeToString(digest[:])

	isHTML := model.IsHTMLContentType(outcome.ContentType)
	switch {
	case outcome.ContentType == "":
		isHTML = task.Kind == model.KindPage
	case isHTML:
		outcome.Kind = model.KindPage
	default:
		outcome.Kind = model.KindAsset
	}

	base := resp.URL
	if base == "" {
		base = task.Key.String()
	}

	var found Discovery
	switch {
	case isHTML:
		found.Pages, found.Assets = e.extractor.Extract(decodeBody(resp.Body, resp.ContentType()), base)
	case model.IsCSSContentType(outcome.ContentType):
		found.Pages, found.Assets = e.extractor.ExtractStylesheet(decodeBody(resp.Body, resp.ContentType()), base)
	}
	if found.Pages.Len() > 0 || found.Assets.Len() > 0 {
		e.logger.Debug("discovered references",
			"url", outcome.URL,
			"pages", found.Pages.Len(),
			"assets", found.Assets.Len())
	}

	outcome.Duration = time.Since(start)
	return outcome, found
}

// decodeBody converts body to UTF-8 using the charset parameter of
// contentType. Unknown or missing charsets leave the bytes untouched.
func decodeBody(body []byte, contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body)
	}
	charset := strings.TrimSpace(params["charset"])
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return string(body)
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
