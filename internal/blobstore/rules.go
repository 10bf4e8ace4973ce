package blobstore

import (
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"lifeplan/internal/domain"
)

// Folder is a top-level upload area under a user's prefix
type Folder string

const (
	FolderVisionBoard   Folder = "vision-board"
	FolderJournal       Folder = "journal"
	FolderLifeVision    Folder = "life-vision"
	FolderAlignmentPlan Folder = "alignment-plan"
	FolderEvidence      Folder = "evidence"
	FolderAvatar        Folder = "avatar"
	FolderCustomTracks  Folder = "custom-tracks"
)

const mb = 1024 * 1024

// Rule limits what a folder accepts
type Rule struct {
	MaxSize int64
	Types   []string
}

var (
	imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	videoTypes = []string{"video/mp4", "video/quicktime", "video/webm"}
	audioTypes = []string{"audio/mpeg", "audio/wav", "audio/mp3"}
)

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var rules = map[Folder]Rule{
	FolderVisionBoard:   {MaxSize: 50 * mb, Types: concat(imageTypes, []string{"image/heic", "image/heif"})},
	FolderJournal:       {MaxSize: 500 * mb, Types: concat(imageTypes, videoTypes, audioTypes)},
	FolderLifeVision:    {MaxSize: 200 * mb, Types: concat(audioTypes, []string{"audio/webm", "video/webm", "application/pdf", "text/plain"})},
	FolderAlignmentPlan: {MaxSize: 200 * mb, Types: []string{"image/jpeg", "image/png", "audio/mpeg", "audio/wav", "application/pdf"}},
	FolderEvidence:      {MaxSize: 500 * mb, Types: concat(imageTypes, videoTypes)},
	FolderAvatar:        {MaxSize: 10 * mb, Types: []string{"image/jpeg", "image/png", "image/webp"}},
	FolderCustomTracks:  {MaxSize: 200 * mb, Types: audioTypes},
}

// RuleFor returns the rule of a folder
func RuleFor(folder Folder) (Rule, bool) {
	r, ok := rules[folder]
	return r, ok
}

// Validate checks folder, content type and size. A size of zero or less skips
// the size check (presigned uploads do not know it yet).
func Validate(folder Folder, contentType string, size int64) error {
	rule, ok := rules[folder]
	if !ok {
		return fmt.Errorf("%w: unknown upload folder %q", domain.ErrValidation, folder)
	}
	// Strip parameters such as "audio/webm;codecs=opus"
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))

	if size > rule.MaxSize {
		return fmt.Errorf("%w: file too large, max %dMB", domain.ErrValidation, rule.MaxSize/mb)
	}
	if !slices.Contains(rule.Types, mediaType) {
		return fmt.Errorf("%w: invalid type %q, allowed: %s", domain.ErrValidation, contentType, strings.Join(rule.Types, ", "))
	}
	return nil
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9.]`)

// SanitizeName lowercases name and replaces everything but letters, digits and dots
func SanitizeName(name string) string {
	return strings.ToLower(unsafeName.ReplaceAllString(name, "-"))
}

// UploadsPrefix roots every object key
const UploadsPrefix = "user-uploads/"

// ObjectKey builds user-uploads/<owner>/<folder>/<unix-ms>-<random>-<name>
func ObjectKey(ownerID string, folder Folder, name string, now time.Time, random string) string {
	return fmt.Sprintf("%s%s/%s/%d-%s-%s", UploadsPrefix, ownerID, folder, now.UnixMilli(), random, SanitizeName(name))
}

// OwnerOf returns the user id a key was uploaded under. Keys outside
// user-uploads/ or with relative segments have no owner.
func OwnerOf(key string) (string, bool) {
	if path.Clean(key) != key {
		return "", false
	}
	rest, ok := strings.CutPrefix(key, UploadsPrefix)
	if !ok {
		return "", false
	}
	owner, file, ok := strings.Cut(rest, "/")
	if !ok || owner == "" || file == "" {
		return "", false
	}
	return owner, true
}
