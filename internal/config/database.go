package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DatabasePath returns database.path, defaulting to
// $HOME/.local/share/books/books.db.
func DatabasePath() string {
	if p := viper.GetString("database.path"); p != "" {
		return ExpandPath(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "books.db"
	}
	return filepath.Join(home, ".local", "share", "books", "books.db")
}
