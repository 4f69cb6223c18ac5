package imgedit

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

type ServerConfig struct {
	SourceDir    string
	ThumbnailDir string
	AllowedExts  []string

	// MaxDimension limits the width and height of requested thumbnails.
	// Zero means no limit.
	MaxDimension uint

	// Resizer defaults to a NativeResizer.
	Resizer ImageResizer
	Logger  hclog.Logger
}

type Server struct {
	conf    *ServerConfig
	handler http.Handler

	thumbnailMutex    sync.Mutex
	pendingThumbnails map[string][]chan error
}

func NewServer(conf ServerConfig) (*Server, error) {
	if conf.Logger == nil {
		conf.Logger = hclog.NewNullLogger()
	}
	if conf.Resizer == nil {
		conf.Resizer = &NativeResizer{
			Config: Config{Logger: conf.Logger.Named("editor")},
		}
	}
	if conf.SourceDir == "" || conf.ThumbnailDir == "" {
		return nil, fmt.Errorf("source and thumbnail dirs are required")
	}

	s := &Server{
		conf:              &conf,
		pendingThumbnails: make(map[string][]chan error),
	}

	mux := http.NewServeMux()
	mux.Handle("/source/", s.sourceHandler())
	mux.Handle("/thumbnail/", s.thumbnailHandler())

	h := http.Handler(mux)
	h = s.slashRemover(h)
	s.handler = h
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) thumbnailHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" || r.Method == "HEAD" {
			s.serveThumbnail(w, r)
			return
		}

		http.Error(w, "Error", http.StatusBadRequest)
	})
}

// thumbnailSize is the target box of a thumbnail, e.g. "300x200".
type thumbnailSize struct {
	width, height uint
}

func (ts thumbnailSize) String() string {
	return fmt.Sprintf("%dx%d", ts.width, ts.height)
}

var sizeRE = regexp.MustCompile(`^([0-9]{1,5})x([0-9]{1,5})$`)

func (s *Server) parseSize(str string) (thumbnailSize, error) {
	m := sizeRE.FindStringSubmatch(str)
	if m == nil {
		return thumbnailSize{}, fmt.Errorf("invalid size: %v", str)
	}
	w, _ := strconv.ParseUint(m[1], 10, 32)
	h, _ := strconv.ParseUint(m[2], 10, 32)
	ts := thumbnailSize{width: uint(w), height: uint(h)}
	if ts.width == 0 || ts.height == 0 {
		return thumbnailSize{}, fmt.Errorf("invalid size: %v", str)
	}
	limit := s.conf.MaxDimension
	if limit > 0 && (ts.width > limit || ts.height > limit) {
		return thumbnailSize{}, fmt.Errorf("size too large: %v", str)
	}
	return ts, nil
}

func (s *Server) serveThumbnail(w http.ResponseWriter, r *http.Request) {
	rest := removePrefix(r.URL.Path, "/thumbnail/")
	sizeStr, keyPath, found := strings.Cut(rest, "/")
	if !found {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	size, err := s.parseSize(sizeStr)
	if err != nil {
		s.conf.Logger.Error("Invalid size", "error", err)
		http.Error(w, "Invalid size", http.StatusBadRequest)
		return
	}
	key, ok := s.key(w, keyPath)
	if !ok {
		return
	}

	f, err := s.openThumbnail(key, size)
	if err != nil {
		s.openFailed(w, err, "key", key, "size", size)
		return
	}
	defer f.Close()
	s.serveFile(w, r, f)
}

// key validates the key part of a request path, answering 400 if invalid.
func (s *Server) key(w http.ResponseWriter, keyPath string) (string, bool) {
	key := strings.TrimSpace(keyPath)
	err := s.validateKey(key)
	if err != nil {
		s.conf.Logger.Error("Invalid key", "error", err)
		http.Error(w, "Invalid key", http.StatusBadRequest)
		return "", false
	}
	return key, true
}

func (s *Server) openFailed(w http.ResponseWriter, err error, args ...interface{}) {
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	s.conf.Logger.Error("Failed to open file", append(args, "error", err)...)
	http.Error(w, "Error", http.StatusInternalServerError)
}

// serveFile writes f, or only its headers for HEAD requests.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, f *os.File) {
	fi, err := f.Stat()
	if err != nil {
		s.conf.Logger.Error("Failed to get file info", "path", f.Name(), "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	if r.Method == "HEAD" {
		w.Header().Set("content-type", mime.TypeByExtension(filepath.Ext(fi.Name())))
		w.Header().Set("content-length", strconv.FormatInt(fi.Size(), 10))
		w.Header().Set("last-modified", fi.ModTime().UTC().Format(http.TimeFormat))
		w.WriteHeader(200)
		return
	}

	s.conf.Logger.Debug("Serve", "path", f.Name())
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

func (s *Server) thumbnailPath(key string, size thumbnailSize) string {
	return filepath.Join(s.conf.ThumbnailDir, size.String(), keyFilepath(key))
}

func (s *Server) sourcePath(key string) string {
	return filepath.Join(s.conf.SourceDir, keyFilepath(key))
}

// openThumbnail opens the thumbnail, creating it first if needed.
// Concurrent requests for the same thumbnail wait for a single creation.
func (s *Server) openThumbnail(key string, size thumbnailSize) (*os.File, error) {
	path := s.thumbnailPath(key, size)
	s.conf.Logger.Debug("Open", "path", path)
	f, err := os.Open(path)
	if (err != nil && !os.IsNotExist(err)) || err == nil {
		return f, err
	}

	pendingKey := size.String() + "/" + key
	s.thumbnailMutex.Lock()
	ch := make(chan error, 1)
	s.pendingThumbnails[pendingKey] = append(s.pendingThumbnails[pendingKey], ch)
	if len(s.pendingThumbnails[pendingKey]) == 1 {
		go s.createThumbnail(pendingKey, key, size, path)
	}
	s.thumbnailMutex.Unlock()

	err = <-ch
	if err != nil {
		return nil, err
	}
	s.conf.Logger.Debug("Open", "path", path)
	return os.Open(path)
}

func (s *Server) createThumbnail(pendingKey, key string, size thumbnailSize, path string) {
	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		s.sendThumbnailResult(pendingKey, err)
		return
	}
	if err == nil {
		s.sendThumbnailResult(pendingKey, nil)
		return
	}

	src := s.sourcePath(key)
	if _, err := os.Stat(src); err != nil {
		s.sendThumbnailResult(pendingKey, fmt.Errorf("source of %v: %w", key, err))
		return
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0754)
	if err != nil {
		s.sendThumbnailResult(pendingKey, err)
		return
	}

	// write next to the target so that readers never see a partial file
	tmp := filepath.Join(dir, ".tmp-"+filepath.Base(path))
	s.conf.Logger.Debug("Create thumbnail", "source", src, "path", path, "size", size)
	err = s.conf.Resizer.Resize(tmp, src, size.width, size.height, ResizeModeFill)
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		err = fmt.Errorf("Failed to create thumbnail: %w", err)
	}
	s.sendThumbnailResult(pendingKey, err)
}

func (s *Server) sendThumbnailResult(pendingKey string, err error) {
	s.thumbnailMutex.Lock()
	defer s.thumbnailMutex.Unlock()

	for _, ch := range s.pendingThumbnails[pendingKey] {
		if err != nil {
			ch <- err
		}
		close(ch)
	}
	delete(s.pendingThumbnails, pendingKey)
}

func (s *Server) sourceHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" || r.Method == "HEAD" {
			s.serveSource(w, r)
			return
		}
		if r.Method == "PUT" {
			s.saveSource(w, r)
			return
		}

		http.Error(w, "Error", http.StatusBadRequest)
	})
}

func removePrefix(url, prefix string) string {
	return strings.Replace(url, prefix, "", 1)
}

func (s *Server) serveSource(w http.ResponseWriter, r *http.Request) {
	key, ok := s.key(w, removePrefix(r.URL.Path, "/source/"))
	if !ok {
		return
	}

	p := s.sourcePath(key)
	s.conf.Logger.Debug("Open", "path", p)
	f, err := os.Open(p)
	if err != nil {
		s.openFailed(w, err, "path", p)
		return
	}
	defer f.Close()
	s.serveFile(w, r, f)
}

// saveSource stores an uploaded image. The upload is written to a temporary
// file and linked into place only if its format is supported, so a source
// is never replaced and never left partially written.
func (s *Server) saveSource(w http.ResponseWriter, r *http.Request) {
	key, ok := s.key(w, removePrefix(r.URL.Path, "/source/"))
	if !ok {
		return
	}

	p := s.sourcePath(key)
	dir := filepath.Dir(p)
	err := os.MkdirAll(dir, 0754)
	if err != nil {
		s.conf.Logger.Error("Failed to create dir", "dir", dir, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	tmp, sum, err := s.writeUpload(dir, r.Body)
	if tmp != "" {
		defer os.Remove(tmp)
	}
	if err != nil {
		s.conf.Logger.Error("Failed to write upload", "path", p, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	tag, err := DetectFormat(tmp)
	if err != nil {
		s.conf.Logger.Error("Rejected upload", "key", key, "error", err)
		http.Error(w, "Unsupported format", http.StatusUnsupportedMediaType)
		return
	}

	err = os.Link(tmp, p)
	if os.IsExist(err) {
		http.Error(w, "Already exists", http.StatusConflict)
		return
	}
	if err != nil {
		s.conf.Logger.Error("Failed to store file", "path", p, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	pathMD5 := p + ".md5"
	s.conf.Logger.Debug("Write MD5 file", "path", pathMD5, "md5", sum, "format", tag)
	err = os.WriteFile(pathMD5, []byte(sum), 0644)
	if err != nil {
		s.conf.Logger.Error("Failed to write MD5 file", "path", pathMD5, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(200)
}

func keyFilepath(key string) string {
	return filepath.FromSlash(key)
}

var keyRE *regexp.Regexp = regexp.MustCompile(`^[a-zA-Z0-9/._-]+$`)

func (s *Server) validateKey(key string) error {
	if !keyRE.Match([]byte(key)) {
		return fmt.Errorf("invalid key: %v", key)
	}

	keyCopy := key
	key = path.Clean(keyCopy)
	if key != keyCopy ||
		key == "." ||
		key[0] == '/' ||
		strings.Contains(key, "..") {
		return fmt.Errorf("invalid key: %v", key)
	}

	ext := path.Ext(key)
	if ext == "" {
		return fmt.Errorf("no ext: %v", key)
	}

	allowed := slices.ContainsFunc(s.conf.AllowedExts, func(e string) bool {
		return strings.EqualFold(ext, e)
	})
	if !allowed {
		return fmt.Errorf("invalid ext: %v", key)
	}

	return nil
}

// writeUpload copies r into a new temporary file in dir and returns its
// path and MD5 sum. The caller removes the file.
func (s *Server) writeUpload(dir string, r io.Reader) (string, string, error) {
	f, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", "", err
	}
	s.conf.Logger.Debug("Write file", "path", f.Name())

	h := md5.New()
	_, err = io.Copy(io.MultiWriter(f, h), r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return f.Name(), "", err
	}
	return f.Name(), fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (s *Server) slashRemover(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Google treats URLs with trailing slash
		// and URLs without trailing slash separately and equally.
		// Prefer non-trailing slash URLs over trailing slash URLs.
		p := r.URL.Path
		if p != "/" && p[len(p)-1] == '/' {
			p = strings.TrimRight(p, "/")
			http.Redirect(w, r, p, 301)
			return
		}
		h.ServeHTTP(w, r)
	})
}
