package main

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"vidhub/internal/auth"
	"vidhub/internal/catalog"
	"vidhub/internal/danmu"
	"vidhub/internal/user"
	"vidhub/internal/ws"
	"vidhub/pkg/models"
)

const dateLayout = "2006-01-02"

func (a *app) router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	r.Static("/static/videos", a.cfg.Media.UploadDir)
	r.Static("/static/thumbnails", a.cfg.Media.ThumbnailDir)

	r.POST("/auth/register", a.handleRegister)
	r.POST("/auth/login", a.handleLogin)
	r.POST("/auth/logout", a.handleLogout)

	r.GET("/api/videos", a.handleListVideos)
	r.GET("/api/search", a.handleSearch)
	r.GET("/api/videos/:id", auth.OptionalJWT(a.secret), a.handlePlayVideo)
	r.GET("/api/users/:username", auth.OptionalJWT(a.secret), a.handleProfile)
	r.POST("/api/reconcile", a.handleReconcile)

	r.POST("/api/videos/:id/danmu", auth.OptionalJWT(a.secret), a.handlePostDanmu)
	r.GET("/api/videos/:id/danmu/stream", a.handleDanmuStream)
	r.GET("/ws/danmu/:id", auth.OptionalJWT(a.secret), ws.HandleDanmu(a.danmu))

	authed := r.Group("/", auth.RequireJWT(a.secret))
	authed.POST("/api/upload", a.handleUpload)
	authed.POST("/api/videos/:id/like", a.handleLike)
	authed.POST("/api/videos/:id/favorite", a.handleFavorite)
	authed.POST("/api/videos/:id/comment", a.handleComment)
	authed.POST("/api/users/:username/follow", a.handleFollow)
	authed.GET("/api/favorites", a.handleFavorites)

	return r
}

// fail maps domain errors to HTTP statuses with the common error
// envelope.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "server error"

	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, user.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, catalog.ErrEmptyComment),
		errors.Is(err, danmu.ErrEmptyText),
		errors.Is(err, user.ErrEmptyCredentials),
		errors.Is(err, user.ErrSelfFollow):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, user.ErrUsernameTaken), errors.Is(err, catalog.ErrDuplicateID):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, user.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, err.Error()
	default:
		logrus.WithError(err).Error("request failed")
	}
	c.JSON(status, gin.H{"status": "error", "message": message})
}

func accountView(u models.UserAccount) gin.H {
	return gin.H{
		"id":            u.ID,
		"username":      u.Username,
		"register_date": u.RegisterDate,
		"followers":     u.Followers,
	}
}

func (a *app) handleRegister(c *gin.Context) {
	var req struct {
		Username        string `json:"username"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid json"})
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "passwords do not match"})
		return
	}

	u, err := a.users.Register(req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := auth.SignJWT(a.secret, u.ID, u.Username, a.cfg.Auth.TTL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "token": token, "user": accountView(u)})
}

func (a *app) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid json"})
		return
	}

	u, err := a.users.Authenticate(req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := auth.SignJWT(a.secret, u.ID, u.Username, a.cfg.Auth.TTL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "token": token, "user": accountView(u)})
}

// handleLogout exists for interface parity; the token is stateless, so
// discarding it client-side is the whole operation.
func (a *app) handleLogout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (a *app) handleListVideos(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"videos": a.catalog.List()})
}

func (a *app) handleSearch(c *gin.Context) {
	query := c.Query("q")
	c.JSON(http.StatusOK, gin.H{"query": query, "videos": a.catalog.Search(query)})
}

func (a *app) handlePlayVideo(c *gin.Context) {
	v, err := a.catalog.RecordView(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	username := c.GetString(auth.CtxUsernameKey)
	liked, favorited := false, false
	var following []string
	if username != "" {
		for _, name := range v.LikedBy {
			if name == username {
				liked = true
			}
		}
		for _, name := range v.FavoritedBy {
			if name == username {
				favorited = true
			}
		}
		following = a.users.Following(c.GetString(auth.CtxUserIDKey))
	}

	authorFollowers := 0
	if author, err := a.users.ByUsername(v.Author); err == nil {
		authorFollowers = author.Followers
	}

	c.JSON(http.StatusOK, gin.H{
		"video":                  v,
		"liked":                  liked,
		"favorited":              favorited,
		"author_followers":       authorFollowers,
		"current_user_following": following,
	})
}

func (a *app) handleProfile(c *gin.Context) {
	u, err := a.users.ByUsername(c.Param("username"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":                   accountView(u),
		"videos":                 a.catalog.ByAuthor(u.Username),
		"current_user_following": a.users.Following(c.GetString(auth.CtxUserIDKey)),
	})
}

func (a *app) handleReconcile(c *gin.Context) {
	added, err := a.ingest.Reconcile(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "added": added})
}

func (a *app) handleUpload(c *gin.Context) {
	file, err := c.FormFile("video_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "no file selected"})
		return
	}
	filename := filepath.Base(file.Filename)
	if filename == "" || filename == "." {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "no file selected"})
		return
	}
	if !a.ingest.Allowed(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "unsupported file type, only mp4, webm and mkv are accepted"})
		return
	}

	// Suffix the name until it is free in the upload directory.
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for counter := 1; fileExists(filepath.Join(a.cfg.Media.UploadDir, filename)); counter++ {
		filename = stem + "_" + strconv.Itoa(counter) + ext
	}
	id := strings.TrimSuffix(filename, ext)

	if err := c.SaveUploadedFile(file, filepath.Join(a.cfg.Media.UploadDir, filename)); err != nil {
		fail(c, err)
		return
	}

	duration, thumbnail := a.ingest.Describe(c.Request.Context(), id, filename)

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.ReplaceAll(id, "_", " ")
	}

	rec := models.VideoRecord{
		ID:          id,
		Title:       title,
		Filename:    filename,
		UploadDate:  time.Now().Format(dateLayout),
		Duration:    duration,
		Thumbnail:   thumbnail,
		Author:      c.GetString(auth.CtxUsernameKey),
		LikedBy:     []string{},
		FavoritedBy: []string{},
		Comments:    []models.Comment{},
	}
	if err := a.catalog.Add(rec); err != nil {
		fail(c, err)
		return
	}
	if a.announce != nil {
		a.announce(rec)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "upload complete", "video_id": id})
}

func (a *app) handleLike(c *gin.Context) {
	action, likes, err := a.catalog.ToggleLike(c.Param("id"), c.GetString(auth.CtxUsernameKey))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "action": action, "likes": likes})
}

// handleFavorite flips the user-side favorite set first (it is the source
// of truth), then mirrors the membership onto the video aggregate.
func (a *app) handleFavorite(c *gin.Context) {
	id := c.Param("id")
	if _, err := a.catalog.Get(id); err != nil {
		fail(c, err)
		return
	}

	favorited, err := a.users.ToggleFavorite(c.GetString(auth.CtxUserIDKey), id)
	if err != nil {
		fail(c, err)
		return
	}
	count, err := a.catalog.ApplyFavorite(id, c.GetString(auth.CtxUsernameKey), favorited)
	if err != nil {
		fail(c, err)
		return
	}

	action := catalog.ActionUnfavorited
	if favorited {
		action = catalog.ActionFavorited
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "action": action, "favorites": count})
}

func (a *app) handleComment(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid json"})
		return
	}

	comment, err := a.catalog.AddComment(c.Param("id"), c.GetString(auth.CtxUsernameKey), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "comment": comment})
}

func (a *app) handleFollow(c *gin.Context) {
	action, followers, err := a.users.ToggleFollow(c.GetString(auth.CtxUserIDKey), c.Param("username"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "action": action, "followers": followers})
}

func (a *app) handleFavorites(c *gin.Context) {
	ids, err := a.users.Favorites(c.GetString(auth.CtxUserIDKey))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": a.catalog.ByIDs(ids)})
}

func (a *app) handlePostDanmu(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid json"})
		return
	}

	if err := a.danmu.Post(c.Param("id"), req.Text, c.GetString(auth.CtxUsernameKey)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// handleDanmuStream pushes the video's captions as server-sent events:
// full retained history first, then each new message as it is posted. The
// subscription ends with the request context.
func (a *app) handleDanmuStream(c *gin.Context) {
	ch := a.danmu.Subscribe(c.Request.Context(), c.Param("id"))

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		msg, ok := <-ch
		if !ok {
			return false
		}
		c.SSEvent("danmu", msg)
		return true
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
