package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/rudderhq/rudder/internal/helm"
	"github.com/rudderhq/rudder/pkg/logger"
)

// RepoService enumerates the repositories configured in the package manager.
type RepoService struct {
	runner helm.Runner
	log    *zap.Logger
}

// NewRepoService constructs a repository discovery service.
func NewRepoService(runner helm.Runner) (*RepoService, error) {
	if runner == nil {
		return nil, errors.New("repo service: helm runner is required")
	}
	return &RepoService{runner: runner, log: logger.WithModule("repos")}, nil
}

// AvailableRepos lists configured repository names and reports whether the
// requested one is among them. Discovery only narrows a search, so a failed
// or unparseable listing degrades to an empty result instead of an error.
func (s *RepoService) AvailableRepos(ctx context.Context, requested string) ([]string, bool) {
	if s == nil {
		return nil, false
	}
	ctx = ensuredContext(ctx)

	out, err := s.runner.Run(ctx, "repo", "list")
	if err != nil {
		s.log.Debug("repo list failed", zap.Error(err))
		return nil, false
	}

	var repos []string
	requestedExists := false

	lines := strings.Split(string(out), "\n")
	if len(lines) > 0 {
		// First line is the NAME/URL header.
		lines = lines[1:]
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		repos = append(repos, name)
		if name == requested {
			requestedExists = true
		}
	}

	return repos, requestedExists
}
