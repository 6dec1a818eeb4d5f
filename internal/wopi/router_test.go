package wopi

import (
	"errors"
	"testing"
)

func TestRouteRequest(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantVerb Verb
		wantID   string
		wantErr  bool
	}{
		{"check file info", "/wopi/files/abc123_1", VerbCheckFileInfo, "abc123_1", false},
		{"contents", "/wopi/files/abc123_1/contents", VerbContents, "abc123_1", false},
		{"root", "/", 0, "", true},
		{"missing file id", "/wopi/files/", 0, "", true},
		{"trailing segment", "/wopi/files/abc/contents/extra", 0, "", true},
		{"wrong prefix", "/files/abc123", 0, "", true},
		{"wrong suffix", "/wopi/files/abc123/content", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verb, fileID, err := RouteRequest(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequestPath) {
					t.Fatalf("Expected ErrInvalidRequestPath, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("RouteRequest(%q) failed: %v", tt.path, err)
			}
			if verb != tt.wantVerb {
				t.Errorf("verb = %v, want %v", verb, tt.wantVerb)
			}
			if fileID != tt.wantID {
				t.Errorf("fileID = %q, want %q", fileID, tt.wantID)
			}
		})
	}
}

func TestParseFileID(t *testing.T) {
	hash := "da39a3ee5e6b4b0d3255bfef95601890afd80709"

	tests := []struct {
		name         string
		raw          string
		wantWritable bool
		wantErr      bool
	}{
		{"writable", hash + "_1", true, false},
		{"read-only", hash + "_0", false, false},
		{"empty flag treated as read-only", hash + "_", false, false},
		{"no separator", hash, false, true},
		{"empty hash", "_1", false, true},
		{"bad flag", hash + "_2", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fid, err := ParseFileID(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFileID) {
					t.Fatalf("Expected ErrInvalidFileID, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseFileID(%q) failed: %v", tt.raw, err)
			}
			if fid.Hash != hash {
				t.Errorf("hash = %q, want %q", fid.Hash, hash)
			}
			if fid.Writable != tt.wantWritable {
				t.Errorf("writable = %v, want %v", fid.Writable, tt.wantWritable)
			}
		})
	}
}

func TestFileID_String(t *testing.T) {
	fid := FileID{Hash: "abc", Writable: true}
	if fid.String() != "abc_1" {
		t.Errorf("String() = %q, want %q", fid.String(), "abc_1")
	}

	parsed, err := ParseFileID(fid.String())
	if err != nil {
		t.Fatalf("ParseFileID round trip failed: %v", err)
	}
	if parsed != fid {
		t.Errorf("Round trip = %+v, want %+v", parsed, fid)
	}
}
