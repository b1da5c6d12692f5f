package server

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/ireporter/db"
	"github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
	"github.com/techagentng/ireporter/server/response"
)

// mediaFields are the multipart fields that may carry attachments.
var mediaFields = []string{"images", "videos", "audio", "media"}

func formFiles(c *gin.Context) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	var files []*multipart.FileHeader
	for _, field := range mediaFields {
		files = append(files, form.File[field]...)
	}
	return files
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

func reportResponses(reports []models.Report) []models.ReportResponse {
	out := make([]models.ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, reports[i].Response())
	}
	return out
}

func (s *Server) handleListReports(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}

		var filter db.ReportFilter
		if raw := c.Query("status"); raw != "" {
			filter.Status = models.ParseStatus(raw)
			if filter.Status == models.StatusUnknown {
				respondError(c, errors.New("unknown status "+strconv.Quote(raw), http.StatusBadRequest))
				return
			}
		}
		if c.Query("mine") == "true" {
			filter.UserID = user.ID
		} else if raw := c.Query("user_id"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				respondError(c, errors.New("invalid user_id", http.StatusBadRequest))
				return
			}
			filter.UserID = uint(id)
		}

		reports, err := s.ReportService.ListReports(kind, filter)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, reportResponses(reports), nil)
	}
}

func (s *Server) handleCreateReport(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var fields models.ReportFields
		if err := decodeForm(c, &fields); err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}

		report, err := s.ReportService.CreateReport(c.Request.Context(), user, kind, &fields, formFiles(c))
		if err != nil {
			respondError(c, err)
			return
		}
		ReportsCreated.WithLabelValues(string(kind)).Inc()
		response.JSON(c, kind.Label()+" created", http.StatusCreated, []models.ReportResponse{report.Response()}, nil)
	}
}

func (s *Server) handleGetReport(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		report, err := s.ReportService.GetReport(kind, id)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, []models.ReportResponse{report.Response()}, nil)
	}
}

func (s *Server) handleUpdateReport(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}

		var fields models.ReportFields
		var files []*multipart.FileHeader
		if isMultipart(c) {
			if err := decodeForm(c, &fields); err != nil {
				response.JSON(c, "", err.Status, nil, err)
				return
			}
			files = formFiles(c)
		} else if err := decode(c, &fields); err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}

		report, err := s.ReportService.UpdateReport(c.Request.Context(), user, kind, id, &fields, files)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, kind.Label()+" updated", http.StatusOK, []models.ReportResponse{report.Response()}, nil)
	}
}

func (s *Server) handleUpdateLocation(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		var req models.LocationRequest
		if err := decode(c, &req); err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}

		report, err := s.ReportService.UpdateLocation(user, kind, id, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, kind.Label()+" location updated", http.StatusOK, []models.ReportResponse{report.Response()}, nil)
	}
}

func (s *Server) handleUpdateStatus(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		var req models.StatusRequest
		if err := decode(c, &req); err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}
		target := models.ParseStatus(req.Status)
		if target == models.StatusUnknown {
			respondError(c, errors.New("unknown status "+strconv.Quote(req.Status), http.StatusBadRequest))
			return
		}

		report, from, err := s.ReportService.UpdateStatus(c.Request.Context(), user, kind, id, target)
		if err != nil {
			respondError(c, err)
			return
		}
		StatusTransitions.WithLabelValues(string(kind), from.APIValue(), target.APIValue()).Inc()
		response.JSON(c, kind.Label()+" status updated", http.StatusOK, []models.ReportResponse{report.Response()}, nil)
	}
}

func (s *Server) handleDeleteReport(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		if err := s.ReportService.DeleteReport(c.Request.Context(), user, kind, id); err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, kind.Label()+" deleted", http.StatusOK, []gin.H{{"id": id}}, nil)
	}
}
