package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"splice/internal/config"
	"splice/internal/project"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTemplate verifies the template project that seeds new projects has a
// readable original document.
func CheckTemplate(cfg *config.Config) Result {
	const name = "Template project"

	id := cfg.Projects.TemplateID
	path := project.NewStore(cfg.ProjectsDir(), cfg.Projects.DocumentName).OriginalPath(id)
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s missing (%s); project creation will fail", id, path)}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: fmt.Sprintf("%s (%s)", id, path)}
}

// CheckTranslate reports whether translate commands can reach an LLM.
func CheckTranslate(cfg *config.Config) Result {
	const name = "Translation LLM"

	if strings.TrimSpace(cfg.Translate.APIKey) == "" {
		return Result{Name: name, Optional: true, Detail: "disabled (no api key)"}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: fmt.Sprintf("%s via %s", cfg.Translate.Model, cfg.Translate.BaseURL)}
}
