package domain

import (
	"fmt"
	"time"
)

// ImageStatus tracks a featured image from discovery to CMS upload.
type ImageStatus string

const (
	ImageFound     ImageStatus = "found"
	ImageGenerated ImageStatus = "generated"
	ImageUploaded  ImageStatus = "uploaded"
	ImageError     ImageStatus = "error"
)

func (s ImageStatus) String() string { return string(s) }

// ParseImageStatus rejects values outside the closed set.
func ParseImageStatus(v string) (ImageStatus, error) {
	switch s := ImageStatus(v); s {
	case ImageFound, ImageGenerated, ImageUploaded, ImageError:
		return s, nil
	default:
		return "", fmt.Errorf("image status %q: %w", v, ErrUnknownStatus)
	}
}

// FeaturedImage is the display image linked to an article.
type FeaturedImage struct {
	ID               string
	ArticleID        string
	AIPrompt         string
	Filename         string
	AltText          string
	URL              string
	Status           ImageStatus
	WordPressMediaID int64
	WordPressURL     string
	Error            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NeedsUpload is true for images that exist but are not yet in the CMS.
func (f FeaturedImage) NeedsUpload() bool {
	return f.Status == ImageFound || f.Status == ImageGenerated
}

// MarkUploaded stores the CMS media reference.
func (f *FeaturedImage) MarkUploaded(mediaID int64, url string, now time.Time) error {
	if !f.NeedsUpload() {
		return transitionErr("image", f.ID, f.Status, ImageUploaded, "")
	}
	f.Status = ImageUploaded
	f.WordPressMediaID = mediaID
	f.WordPressURL = url
	f.Error = ""
	f.UpdatedAt = now
	return nil
}

// MarkError records an image failure; uploaded images keep their media reference.
func (f *FeaturedImage) MarkError(cause error, now time.Time) {
	if f.Status == ImageUploaded {
		return
	}
	f.Status = ImageError
	if cause != nil {
		f.Error = cause.Error()
	}
	f.UpdatedAt = now
}
