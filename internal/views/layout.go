package views

import (
	"strings"

	"github.com/klkchan/klkchan/internal/models"
)

// PageMeta is the shell data shared by every page
type PageMeta struct {
	Title    string
	SiteName string
	Version  string
	User     *models.User
	Flash    string
	IsError  bool
}

// FullTitle joins the page title and the site name
func (m PageMeta) FullTitle() string {
	switch {
	case m.Title == "":
		return m.SiteName
	case m.SiteName == "" || strings.HasSuffix(m.Title, " | "+m.SiteName):
		return m.Title
	}
	return m.Title + " | " + m.SiteName
}
