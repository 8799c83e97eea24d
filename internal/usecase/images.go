package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/metrics"
	"ArticlesPublisher/internal/ports"
)

// ImageAttacher requests featured images for articles and uploads them to the CMS.
type ImageAttacher struct {
	service  ports.ImageService
	cms      ports.CMS
	images   ports.ImageRepository
	articles ports.ArticleRepository
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewImageAttacher wires the image pipeline.
func NewImageAttacher(service ports.ImageService, cms ports.CMS, images ports.ImageRepository, articles ports.ArticleRepository, logger *slog.Logger, clock Clock) *ImageAttacher {
	return &ImageAttacher{
		service:  service,
		cms:      cms,
		images:   images,
		articles: articles,
		logger:   componentLogger(logger, "images"),
		now:      clock.now(),
		newID:    clock.id(),
	}
}

// Prepare moves a generated article through image_draft. A found or generated
// image leaves it generated_with_image; a failed request records an error image
// and moves the article to ready_to_publish without one.
func (a *ImageAttacher) Prepare(ctx context.Context, article domain.Article) (domain.Article, error) {
	from := article.Status
	if err := article.TransitionTo(domain.ArticleGeneratedImageDraft, a.now()); err != nil {
		return article, err
	}
	if err := a.articles.Update(ctx, article, from); err != nil {
		return article, fmt.Errorf("mark article %s image draft: %w", article.ID, err)
	}

	req := ports.ImageRequest{
		ArticleID: article.ID,
		AIPrompt:  imagePrompt(article),
		Filename:  imageFilename(article),
		AltText:   article.Title,
	}
	image := domain.FeaturedImage{
		ID:        a.newID(),
		ArticleID: article.ID,
		AIPrompt:  req.AIPrompt,
		Filename:  req.Filename,
		AltText:   req.AltText,
		CreatedAt: a.now(),
		UpdatedAt: a.now(),
	}

	next := domain.ArticleGeneratedWithImage
	res, err := a.service.RequestImage(ctx, req)
	if err == nil && strings.TrimSpace(res.URL) == "" {
		err = errors.New("image service returned no url")
	}
	if err != nil {
		a.logger.Warn("image request failed", "article_id", article.ID, "error", err)
		image.MarkError(err, a.now())
		next = domain.ArticleReadyToPublish
	} else {
		image.URL = res.URL
		if res.Filename != "" {
			image.Filename = res.Filename
		}
		if res.AltText != "" {
			image.AltText = res.AltText
		}
		image.Status = domain.ImageFound
		if res.WasGenerated {
			image.Status = domain.ImageGenerated
		}
		article.FeaturedImageURL = res.URL
	}

	if err := a.images.Save(ctx, image); err != nil {
		return article, fmt.Errorf("save image for article %s: %w", article.ID, err)
	}

	if err := article.TransitionTo(next, a.now()); err != nil {
		return article, err
	}
	if err := a.articles.Update(ctx, article, domain.ArticleGeneratedImageDraft); err != nil {
		return article, fmt.Errorf("mark article %s %s: %w", article.ID, next, err)
	}
	return article, nil
}

// EnsureUploaded returns the article's image with a CMS media id, uploading it
// first when needed. ok is false when the article has no usable image.
func (a *ImageAttacher) EnsureUploaded(ctx context.Context, articleID string) (domain.FeaturedImage, bool, error) {
	image, err := a.images.GetByArticle(ctx, articleID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.FeaturedImage{}, false, nil
	}
	if err != nil {
		return domain.FeaturedImage{}, false, fmt.Errorf("load image for article %s: %w", articleID, err)
	}

	if image.Status == domain.ImageUploaded && image.WordPressMediaID > 0 {
		return image, true, nil
	}
	if !image.NeedsUpload() {
		return image, false, nil
	}

	data, contentType, err := a.service.Download(ctx, image.URL)
	if err != nil {
		metrics.ImageUploadsTotal.WithLabelValues("download_failed").Inc()
		return image, false, fmt.Errorf("download image %s: %w", image.URL, err)
	}
	media, err := a.cms.UploadMedia(ctx, ports.MediaUpload{
		Filename:    image.Filename,
		ContentType: contentType,
		AltText:     image.AltText,
		Data:        data,
	})
	if err != nil {
		metrics.ImageUploadsTotal.WithLabelValues("failed").Inc()
		return image, false, fmt.Errorf("upload image %s: %w", image.ID, err)
	}

	if err := image.MarkUploaded(media.ID, media.URL, a.now()); err != nil {
		return image, false, err
	}
	if err := a.images.Save(ctx, image); err != nil {
		return image, false, fmt.Errorf("save uploaded image %s: %w", image.ID, err)
	}
	metrics.ImageUploadsTotal.WithLabelValues("uploaded").Inc()
	a.logger.Info("image uploaded", "article_id", articleID, "media_id", media.ID)
	return image, true, nil
}

func imagePrompt(article domain.Article) string {
	prompt := "Editorial featured image for an article titled \"" + article.Title + "\""
	if len(article.Tags) > 0 {
		prompt += ", topics: " + strings.Join(article.Tags, ", ")
	}
	return prompt
}

func imageFilename(article domain.Article) string {
	base := article.Slug
	if base == "" {
		base = Slugify(article.Title)
	}
	if base == "" {
		base = article.ID
	}
	return path.Base(base) + ".jpg"
}
