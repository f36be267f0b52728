// Package service exposes a filesystem over HTTP. Requests under a fixed
// path prefix are mapped onto filesystem operations: GET reads a file or
// lists a directory, PUT creates directories and writes files, DELETE
// unlinks. Filesystem errors translate to 400, 404, 409, or 507.
package service

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/gunrock-web/ds3fs"
	"github.com/gunrock-web/ds3fs/fs"
	"github.com/gunrock-web/ds3fs/layout"
)

// FileService maps path-addressed GET/PUT/DELETE requests under a path
// prefix onto one filesystem. A coarse mutex serializes every request
// against the shared filesystem instance.
type FileService struct {
	fs     *fs.FileSystem
	prefix string
	mu     sync.Mutex
}

// New creates a service for `filesystem` registered under `prefix`
// (typically "/ds3/"). The prefix is normalized to have leading and
// trailing slashes.
func New(filesystem *fs.FileSystem, prefix string) *FileService {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &FileService{fs: filesystem, prefix: prefix}
}

// Register installs the service's routes on a gin router.
func (s *FileService) Register(router *gin.Engine) {
	group := router.Group(strings.TrimSuffix(s.prefix, "/"))
	group.GET("/*path", s.get)
	group.PUT("/*path", s.put)
	group.DELETE("/*path", s.del)
}

// Router returns a ready-to-serve engine with only this service's routes.
// Requests outside the prefix and unsupported methods are bad requests.
func (s *FileService) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	router.NoMethod(func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	s.Register(router)
	return router
}

// ListenAndServe runs the service on addr until the listener fails.
func (s *FileService) ListenAndServe(addr string) error {
	return s.Router().Run(addr)
}

// statusFor translates a filesystem error into an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ds3fs.ErrNoSpace):
		return http.StatusInsufficientStorage
	case errors.Is(err, ds3fs.ErrNotFound), errors.Is(err, ds3fs.ErrInvalidInode):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func (s *FileService) get(c *gin.Context) {
	path := c.Param("path")
	if strings.Contains(path, "..") {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inum, _, err := s.fs.Resolve(path, layout.RootInode)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	inode, err := s.fs.Stat(inum)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	if inode.Type == layout.Directory {
		entries, err := s.fs.ReadDir(inum)
		if err != nil {
			c.Status(statusFor(err))
			return
		}

		var body strings.Builder
		for _, entry := range entries {
			name := entry.NameString()
			if name == "." || name == ".." {
				continue
			}
			body.WriteString(name)

			child, err := s.fs.Stat(int(entry.Inum))
			if err != nil {
				c.Status(statusFor(err))
				return
			}
			if child.Type == layout.Directory {
				body.WriteString("/")
			}
			body.WriteString("\n")
		}
		c.String(http.StatusOK, body.String())
		return
	}

	data, err := s.fs.Read(inum, int(inode.Size))
	if err != nil {
		c.Status(statusFor(err))
		return
	}
	c.Data(http.StatusOK, "text/plain", data)
}

func (s *FileService) put(c *gin.Context) {
	path := c.Param("path")
	if strings.Contains(path, "..") {
		c.Status(http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	segments := fs.Segments(path)
	if len(segments) == 0 {
		// A PUT on the root itself.
		c.Status(http.StatusConflict)
		return
	}

	wantDirectory := strings.HasSuffix(path, "/")
	if wantDirectory && len(body) > 0 {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Disk().BeginTransaction(); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	fail := func(status int) {
		s.fs.Disk().Rollback()
		c.Status(status)
	}

	// Walk the path, creating missing directories as we go. The final
	// segment is a directory only when the path ends in a slash.
	current := layout.RootInode
	for i, segment := range segments {
		wantType := layout.Directory
		if i == len(segments)-1 && !wantDirectory {
			wantType = layout.RegularFile
		}

		inum, err := s.fs.Lookup(current, segment)
		switch {
		case err == nil:
			inode, statErr := s.fs.Stat(inum)
			if statErr != nil {
				fail(statusFor(statErr))
				return
			}
			if inode.Type != wantType {
				fail(http.StatusConflict)
				return
			}
			current = inum
		case errors.Is(err, ds3fs.ErrNotFound):
			inum, err = s.fs.Create(current, wantType, segment)
			if err != nil {
				fail(statusFor(err))
				return
			}
			current = inum
		default:
			fail(http.StatusNotFound)
			return
		}
	}

	if !wantDirectory {
		if _, err := s.fs.Write(current, body); err != nil {
			fail(statusFor(err))
			return
		}
	}

	if err := s.fs.Disk().Commit(); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	c.String(http.StatusOK, "")
}

func (s *FileService) del(c *gin.Context) {
	path := c.Param("path")
	if strings.Contains(path, "..") {
		c.Status(http.StatusBadRequest)
		return
	}

	segments := fs.Segments(path)
	if len(segments) == 0 {
		// A DELETE on the root itself.
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Resolve the parent chain only; Unlink treats an absent final name as
	// success.
	current := layout.RootInode
	for _, segment := range segments[:len(segments)-1] {
		inum, err := s.fs.Lookup(current, segment)
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		current = inum
	}

	if err := s.fs.Disk().BeginTransaction(); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if err := s.fs.Unlink(current, segments[len(segments)-1]); err != nil {
		s.fs.Disk().Rollback()
		c.Status(http.StatusBadRequest)
		return
	}
	if err := s.fs.Disk().Commit(); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	c.String(http.StatusOK, "")
}
