package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/choplife/choplifeib/internal/audit"
	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database/gallery"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
	"github.com/choplife/choplifeib/internal/storage"
)

const maxCaptionLength = 300

var (
	errUploadsDisabled = errors.New("Uploads are not configured")
	errNoImageSource   = errors.New("Choose an image file or paste an image URL")
	errImageURLScheme  = errors.New("Image URL must start with http:// or https://")
)

// GalleryStore defines the gallery writes of the back-office.
type GalleryStore interface {
	Add(image *entities.GalleryImage) error
	Delete(id uint) (*entities.GalleryImage, error)
}

// ListingChecker reports whether a place or event exists.
type ListingChecker func(ref entities.ListingRef) (bool, error)

type AdminGalleryController struct {
	gallery  GalleryStore
	exists   ListingChecker
	storage  storage.Storage
	maxBytes int64
	auditor  Auditor
	renderer *Renderer
}

func NewAdminGalleryController(gallery GalleryStore, exists ListingChecker, store storage.Storage, maxBytes int64, auditor Auditor, renderer *Renderer) *AdminGalleryController {
	return &AdminGalleryController{
		gallery:  gallery,
		exists:   exists,
		storage:  store,
		maxBytes: maxBytes,
		auditor:  auditor,
		renderer: renderer,
	}
}

// Upload attaches an image to a listing, either an uploaded file in the
// "image" field or an external URL.
// POST /admin/places/:id/gallery, POST /admin/events/:id/gallery
func (gc *AdminGalleryController) Upload(listingType entities.ListingType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		ref := entities.ListingRef{Type: listingType, ID: id}
		back := fmt.Sprintf("/admin/%s/%d/edit", listingType.Plural(), id)

		found, err := gc.exists(ref)
		if err != nil {
			gc.fail(c, back, err, "Failed to add the image")
			return
		}
		if !found {
			gc.renderer.NotFound(c, "We couldn't find that listing.")
			return
		}

		image := &entities.GalleryImage{
			ListingType: ref.Type,
			ListingID:   ref.ID,
			Caption:     clipRunes(strings.TrimSpace(c.PostForm("caption")), maxCaptionLength),
		}

		if err := gc.attach(c, image); err != nil {
			gc.record(c, "add", ref, err)
			if !isUploadError(err) {
				gc.fail(c, back, err, "Failed to add the image")
				return
			}
			gc.respondFailure(c, back, http.StatusBadRequest, err)
			return
		}

		if err := gc.gallery.Add(image); err != nil {
			gc.cleanup(c.Request.Context(), image.StorageKey)
			gc.record(c, "add", ref, err)
			gc.fail(c, back, err, "Failed to add the image")
			return
		}
		gc.record(c, "add", ref, nil)

		if wantsJSON(c) {
			respondCreated(c, image)
			return
		}
		redirectWithNotice(c, back, "Image added")
	}
}

// attach fills URL and StorageKey from the request.
func (gc *AdminGalleryController) attach(c *gin.Context, image *entities.GalleryImage) error {
	file, err := c.FormFile("image")
	if err == nil {
		if gc.storage == nil {
			return errUploadsDisabled
		}
		if gc.maxBytes > 0 && file.Size > gc.maxBytes {
			return storage.ErrTooLarge
		}
		f, err := file.Open()
		if err != nil {
			return fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()

		upload, err := storage.PrepareUpload(f, gc.maxBytes)
		if err != nil {
			return err
		}
		url, err := storage.Store(c.Request.Context(), gc.storage, upload)
		if err != nil {
			return fmt.Errorf("store upload: %w", err)
		}
		image.URL = url
		image.StorageKey = upload.Key
		return nil
	}

	url := strings.TrimSpace(c.PostForm("url"))
	if url == "" {
		return errNoImageSource
	}
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return errImageURLScheme
	}
	image.URL = url
	return nil
}

// isUploadError reports whether err is the uploader's fault.
func isUploadError(err error) bool {
	for _, target := range []error{
		storage.ErrTooLarge, storage.ErrUnsupportedType, storage.ErrEmptyUpload,
		errUploadsDisabled, errNoImageSource, errImageURLScheme,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func clipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Delete removes a gallery image and its stored file.
// POST /admin/gallery/:id/delete
func (gc *AdminGalleryController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	image, err := gc.gallery.Delete(id)
	if errors.Is(err, gallery.ErrNotFound) {
		gc.renderer.NotFound(c, "We couldn't find that image.")
		return
	}
	if err != nil {
		gc.fail(c, backURL(c, "/admin"), err, "Failed to delete the image")
		return
	}
	gc.cleanup(c.Request.Context(), image.StorageKey)
	gc.record(c, "delete", image.Listing(), nil)

	if wantsJSON(c) {
		respondSuccess(c, "image deleted")
		return
	}
	back := fmt.Sprintf("/admin/%s/%d/edit", image.ListingType.Plural(), image.ListingID)
	redirectWithNotice(c, backURL(c, back), "Image removed")
}

func (gc *AdminGalleryController) cleanup(ctx context.Context, key string) {
	if key == "" || gc.storage == nil {
		return
	}
	if err := gc.storage.Delete(ctx, key); err != nil {
		logging.Component("admin").Warn().Err(err).Str("key", key).Msg("failed to remove stored image")
	}
}

func (gc *AdminGalleryController) record(c *gin.Context, verb string, ref entities.ListingRef, err error) {
	gc.auditor.Record(audit.Action{
		ActorID:     auth.GetUserID(c),
		EventType:   entities.AuditEventGallery,
		Action:      "gallery_" + verb,
		EntityType:  string(ref.Type),
		EntityID:    ref.ID,
		Description: fmt.Sprintf("Gallery image %s for %s", verb, ref),
		Err:         err,
	})
}

func (gc *AdminGalleryController) fail(c *gin.Context, back string, err error, msg string) {
	logging.Component("admin").Error().Err(err).Msg("gallery write failed")
	gc.respondFailure(c, back, http.StatusInternalServerError, errors.New(msg))
}

func (gc *AdminGalleryController) respondFailure(c *gin.Context, back string, status int, err error) {
	if wantsJSON(c) {
		respondError(c, status, capitalize(err.Error()))
		return
	}
	redirectWithError(c, back, capitalize(err.Error()))
}
