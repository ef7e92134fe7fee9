package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storyboard/internal/credentials"
	"storyboard/internal/session"
	"storyboard/internal/storage"
)

type sceneModel struct {
	Number    int
	Timestamp string
	Caption   string
	Prompt    string
	ImageURI  template.URL
	Warning   string
	Info      string
}

type pageModel struct {
	Title      string
	Script     string
	Flashes    []flash
	Scenes     []sceneModel
	NeedText   bool
	NeedImage  bool
	TextLabel  string
	ImageLabel string
}

func (s *Server) index(c *gin.Context) {
	e := currentEntry(c)

	e.mu.Lock()
	script := e.script
	e.mu.Unlock()

	page := pageModel{
		Title:      s.opts.Title,
		Script:     script,
		Flashes:    e.takeFlashes(),
		NeedText:   s.needText && !e.keys.Has(credentials.Text),
		NeedImage:  s.needImg && !e.keys.Has(credentials.Image),
		TextLabel:  s.label(credentials.Text),
		ImageLabel: s.label(credentials.Image),
	}

	for _, v := range e.board.Views() {
		page.Scenes = append(page.Scenes, sceneModel{
			Number:    v.Number,
			Timestamp: v.Timestamp,
			Caption:   v.Caption,
			Prompt:    v.Prompt,
			// data URIs built from provider bytes with a fixed image MIME prefix
			ImageURI: template.URL(v.DataURI()),
			Warning:  v.Warning,
			Info:     v.Info,
		})
	}

	c.HTML(http.StatusOK, "index.html", page)
}

func (s *Server) label(key credentials.Key) string {
	if l := s.opts.Labels[key]; l != "" {
		return l
	}
	return string(key) + " API key"
}

func (s *Server) analyze(c *gin.Context) {
	e := currentEntry(c)
	script := c.PostForm("script")

	e.mu.Lock()
	e.script = script
	e.mu.Unlock()

	n, err := e.board.Analyze(c.Request.Context(), script)
	if err != nil {
		e.addFlash("error", session.UserMessage(err))
	} else {
		e.addFlash("success", fmt.Sprintf("Generated %d scenes!", n))
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) generateImage(c *gin.Context) {
	e := currentEntry(c)

	number, ok := sceneNumber(c)
	if !ok {
		return
	}

	err := e.board.GenerateImage(c.Request.Context(), number)
	// renderer failures are shown on the scene card itself
	if err != nil && !errors.Is(err, session.ErrImageGeneration) {
		e.addFlash("error", session.UserMessage(err))
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/#scene-%d", number))
}

func (s *Server) editPrompt(c *gin.Context) {
	e := currentEntry(c)

	number, ok := sceneNumber(c)
	if !ok {
		return
	}

	if err := e.board.EditPrompt(number, c.PostForm("prompt")); err != nil {
		e.addFlash("error", session.UserMessage(err))
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/#scene-%d", number))
}

func (s *Server) setKeys(c *gin.Context) {
	e := currentEntry(c)

	e.keys.Set(credentials.Text, c.PostForm("text_key"))
	e.keys.Set(credentials.Image, c.PostForm("image_key"))

	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) export(c *gin.Context) {
	e := currentEntry(c)

	sub, err := storage.CleanSubdir(c.PostForm("subdir"))
	if err != nil {
		e.addFlash("error", err.Error())
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	written, err := s.backend.ExportSubdir(c.Request.Context(), e.board, sub)
	if err != nil {
		e.addFlash("error", session.UserMessage(err))
	} else {
		e.addFlash("success", fmt.Sprintf("Exported %d files: %s", len(written), strings.Join(written, ", ")))
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func sceneNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n <= 0 {
		c.String(http.StatusBadRequest, "invalid scene number")
		return 0, false
	}
	return n, true
}
