package blobstore

import (
	"errors"
	"testing"
	"time"

	"lifeplan/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		folder      Folder
		contentType string
		size        int64
		wantErr     bool
	}{
		{"life vision audio", FolderLifeVision, "audio/mpeg", 5 * mb, false},
		{"life vision webm with codecs", FolderLifeVision, "audio/webm;codecs=opus", 5 * mb, false},
		{"avatar too large", FolderAvatar, "image/png", 11 * mb, true},
		{"avatar wrong type", FolderAvatar, "image/gif", mb, true},
		{"journal video", FolderJournal, "video/mp4", 400 * mb, false},
		{"unknown folder", Folder("secrets"), "text/plain", 1, true},
		{"presign skips size", FolderAvatar, "image/jpeg", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.folder, tt.contentType, tt.size)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	got := ObjectKey("user-1", FolderLifeVision, "My Recording (1).WEBM", now, "abc123")
	want := "user-uploads/user-1/life-vision/1700000000123-abc123-my-recording--1-.webm"
	if got != want {
		t.Errorf("ObjectKey() = %q, want %q", got, want)
	}
}

func TestOwnerOf(t *testing.T) {
	tests := []struct {
		key       string
		wantOwner string
		wantOK    bool
	}{
		{"user-uploads/alice/journal/1-x-a.mp4", "alice", true},
		{"user-uploads/alice/", "", false},
		{"user-uploads//journal/a.mp4", "", false},
		{"user-uploads/alice/../bob/journal/a.mp4", "", false},
		{"backups/alice/journal/a.mp4", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			owner, ok := OwnerOf(tt.key)
			if owner != tt.wantOwner || ok != tt.wantOK {
				t.Errorf("OwnerOf(%q) = %q, %v; want %q, %v", tt.key, owner, ok, tt.wantOwner, tt.wantOK)
			}
		})
	}
}
