package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/submission"
	storagefs "github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage/fs"
	storagememory "github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage/memory"
)

// writeConfigFile marshals the given document to a YAML file in a temp dir.
func writeConfigFile(t *testing.T, doc map[string]any) string {
	t.Helper()

	raw, err := yaml.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, map[string]any{})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, ":9980", cfg.Server.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, time.Hour, cfg.WOPI.DiscoveryTTL)
	assert.NotEmpty(t, cfg.WOPI.SiteID)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfigFile(t, map[string]any{
		"logging": map[string]any{"level": "debug"},
		"server": map[string]any{
			"listen_addr":         ":8080",
			"shutdown_timeout":    "10s",
			"requests_per_second": 50,
		},
		"storage": map[string]any{
			"type":       "filesystem",
			"filesystem": map[string]any{"path": "/srv/wopi"},
		},
		"wopi": map[string]any{
			"site_id":       "site-42",
			"callback_url":  "http://wopi.example.edu",
			"discovery_url": "http://collabora.example.edu",
			"discovery_ttl": "15m",
		},
		"users": []map[string]any{
			{"id": 7, "name": "Ada", "role": "student"},
			{"id": 20, "name": "Grace", "role": "grader"},
		},
		"groups": []map[string]any{
			{"id": 5, "members": []int64{7}},
		},
		"submissions": []map[string]any{
			{"id": 3, "user_id": 7, "filename": "essay.docx",
				"cutoff_date": "2026-06-01T00:00:00Z"},
			{"id": 4, "group_id": 5, "locked": true},
		},
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized to uppercase")
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, uint(50), cfg.Server.RequestsPerSecond)
	assert.Equal(t, uint(100), cfg.Server.Burst, "burst defaults to twice the rate")

	assert.Equal(t, "filesystem", cfg.Storage.Type)
	assert.Equal(t, "/srv/wopi", cfg.Storage.Filesystem["path"])

	assert.Equal(t, "site-42", cfg.WOPI.SiteID)
	assert.Equal(t, 15*time.Minute, cfg.WOPI.DiscoveryTTL)

	require.Len(t, cfg.Submissions, 2)
	assert.Equal(t, "essay.docx", cfg.Submissions[0].Filename)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), cfg.Submissions[0].CutoffDate)
	assert.Equal(t, "submission.odt", cfg.Submissions[1].Filename, "filename default applied")
	assert.True(t, cfg.Submissions[1].Locked)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
	}{
		{
			"unknown storage type",
			map[string]any{"storage": map[string]any{"type": "floppy"}},
		},
		{
			"submission with both owners",
			map[string]any{"submissions": []map[string]any{
				{"id": 1, "user_id": 7, "group_id": 5},
			}},
		},
		{
			"submission with no owner",
			map[string]any{"submissions": []map[string]any{
				{"id": 1},
			}},
		},
		{
			"duplicate user id",
			map[string]any{"users": []map[string]any{
				{"id": 7, "role": "student"},
				{"id": 7, "role": "grader"},
			}},
		},
		{
			"group member not a configured user",
			map[string]any{
				"users":  []map[string]any{{"id": 7, "role": "student"}},
				"groups": []map[string]any{{"id": 5, "members": []int64{8}}},
			},
		},
		{
			"invalid role",
			map[string]any{"users": []map[string]any{
				{"id": 7, "role": "headmaster"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestCreateStorageBackend(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		backend, err := CreateStorageBackend(context.Background(), &StorageConfig{Type: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &storagememory.MemoryBackend{}, backend)
	})

	t.Run("filesystem", func(t *testing.T) {
		backend, err := CreateStorageBackend(context.Background(), &StorageConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{"path": t.TempDir()},
		})
		require.NoError(t, err)
		assert.IsType(t, &storagefs.FSBackend{}, backend)
	})

	t.Run("filesystem without path", func(t *testing.T) {
		_, err := CreateStorageBackend(context.Background(), &StorageConfig{Type: "filesystem"})
		assert.Error(t, err)
	})

	t.Run("badger in memory", func(t *testing.T) {
		backend, err := CreateStorageBackend(context.Background(), &StorageConfig{
			Type:   "badger",
			Badger: map[string]any{"in_memory": true},
		})
		require.NoError(t, err)
		assert.NotNil(t, backend)
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		_, err := CreateStorageBackend(context.Background(), &StorageConfig{Type: "s3"})
		assert.Error(t, err)
	})
}

func TestBuildRegistry(t *testing.T) {
	cfg := &Config{
		Users: []UserConfig{
			{ID: 7, Name: "Ada", Role: "student"},
			{ID: 20, Name: "Grace", Role: "grader"},
			{ID: 1, Name: "Alan", Role: "admin"},
		},
		Groups: []GroupConfig{
			{ID: 5, Members: []int64{7}},
		},
		Submissions: []SubmissionConfig{
			{ID: 3, UserID: 7},
			{ID: 4, GroupID: 5},
		},
	}

	registry := BuildRegistry(cfg)

	individual, err := registry.Lookup(3)
	require.NoError(t, err)
	assert.Equal(t, submission.PrincipalID(7), individual.OwnerUser())
	assert.False(t, individual.IsGroupSubmission())
	assert.True(t, individual.CanGrade(20))
	assert.True(t, individual.IsAdmin(1))
	assert.Equal(t, "Ada", individual.DisplayName(7))

	team, err := registry.Lookup(4)
	require.NoError(t, err)
	assert.True(t, team.IsGroupSubmission())
	assert.True(t, team.IsMember(7))
	assert.False(t, team.IsMember(20))
}
