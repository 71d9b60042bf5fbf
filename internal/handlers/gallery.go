package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/respond"
	"humanityclub/site/internal/service"
)

func (h HandlerSet) ListAlbums(c *gin.Context) {
	albums, err := h.deps.Gallery.Albums(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}

	items := make([]albumResponse, 0, len(albums))
	for _, a := range albums {
		items = append(items, toAlbum(a))
	}
	respond.OK(c, items)
}

func (h HandlerSet) ListImages(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("perPage"))

	result, err := h.deps.Gallery.Images(c.Request.Context(), page, perPage)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.OK(c, imagePageResponse{
		Images:  toImages(result.Images),
		Page:    result.Page,
		PerPage: result.PerPage,
		Total:   result.Total,
	})
}

func (h HandlerSet) UploadImage(c *gin.Context) {
	upload, closeFile, err := formImage(c)
	if err != nil {
		respond.Error(c, apperr.Wrap(err, apperr.KindValidation, "Could not read uploaded file"))
		return
	}
	defer closeFile()

	ref := service.AlbumRef{
		AlbumID:      c.PostForm("albumId"),
		ProjectIndex: c.PostForm("projectIndex"),
	}

	image, err := h.deps.Gallery.Upload(c.Request.Context(), ref, upload)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, "Image uploaded successfully", toImage(image))
}

func (h HandlerSet) DeleteImage(c *gin.Context) {
	if err := h.deps.Gallery.DeleteImage(c.Request.Context(), c.Param("imageId")); err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Image deleted successfully", nil)
}
