package attendance

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	attendanceerrors "go-presence/internal/attendance/errors"
	"go-presence/internal/shared/apperror"
	"go-presence/internal/shared/contextutil"
	"go-presence/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Device firmware clears its upload buffer only on this exact reply.
var deviceAck = []byte("OK")

const maxDeviceBody = 1 << 20

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("attendance.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Handler{service: service, logger: l}
}

func writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func writeDeviceAck(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain", deviceAck)
}

// DeviceHandshake answers the ADMS GET poll.
func (h *Handler) DeviceHandshake(c *gin.Context) {
	writeDeviceAck(c)
}

// DeviceUpload always acknowledges, whatever happened to individual lines.
func (h *Handler) DeviceUpload(c *gin.Context) {
	serial := c.Query("SN")
	body := h.readDeviceBody(c, serial)

	h.service.IngestDevice(c.Request.Context(), serial, body)
	writeDeviceAck(c)
}

// readDeviceBody keeps at most maxDeviceBody bytes, cut back to the last whole
// line so a partial record is never parsed.
func (h *Handler) readDeviceBody(c *gin.Context, serial string) []byte {
	if c.Request.Body == nil {
		return nil
	}
	log := contextutil.GetLogger(c.Request.Context(), h.logger)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDeviceBody+1))
	if err != nil {
		log.Error("read device upload failed",
			zap.String("device_sn", serial),
			zap.Int("read_bytes", len(body)),
			zap.Error(err),
		)
	}
	if len(body) > maxDeviceBody {
		body = body[:maxDeviceBody]
		if i := bytes.LastIndexAny(body, "\r\n"); i >= 0 {
			body = body[:i+1]
		}
		log.Warn("device upload truncated",
			zap.String("device_sn", serial),
			zap.Int("limit", maxDeviceBody),
			zap.Int("kept_bytes", len(body)),
		)
	}
	return body
}

func (h *Handler) WebPunch(c *gin.Context) {
	actor := Actor{
		CompanyID:  c.GetString("company_id"),
		EmployeeID: c.GetString("employee_id"),
		UserID:     c.GetString("user_id_validated"),
		IPAddress:  c.ClientIP(),
	}

	var req WebPunchRequest
	if c.Request.ContentLength != 0 && c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeServiceError(c, apperror.MapValidationError(err))
			return
		}
	}

	res, err := h.service.WebPunch(c.Request.Context(), actor, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if res.Rejected {
		response.Error(c, http.StatusUnprocessableEntity, apperror.CodePunchRejected, res.Reason, map[string]any{
			"guard": res.Guard,
			"type":  res.Type,
		})
		return
	}

	status := http.StatusOK
	if res.Type == PunchCheckIn {
		status = http.StatusCreated
	}
	response.SuccessWithMessage(c, status, string(res.Type)+" recorded", PunchResponse{
		Type:       res.Type,
		Attendance: res.Attendance,
	})
}

func (h *Handler) GetAll(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := c.GetString("employee_id")
	if actorID == "" {
		actorID = c.GetString("user_id_validated")
	}
	role := strings.ToUpper(strings.TrimSpace(c.GetString("role")))
	hasReadAll := c.GetBool("has_read_all")
	canReadAll := hasReadAll && isPrivilegedRole(role)

	var q ListAttendanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeServiceError(c, apperror.MapValidationError(err))
		return
	}
	filter, err := q.toFilter()
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp, err := h.service.GetAll(c.Request.Context(), companyID, actorID, canReadAll, filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	page, meta := response.Paginate(resp, q.Page, q.PageSize)
	response.Success(c, http.StatusOK, page, &meta)
}

func (q ListAttendanceQuery) toFilter() (ListFilter, error) {
	var f ListFilter
	if q.From != "" {
		t, err := time.Parse(dateLayout, q.From)
		if err != nil {
			return ListFilter{}, attendanceerrors.ErrInvalidDateFormat
		}
		f.From = &t
	}
	if q.To != "" {
		t, err := time.Parse(dateLayout, q.To)
		if err != nil {
			return ListFilter{}, attendanceerrors.ErrInvalidDateFormat
		}
		f.To = &t
	}
	return f, nil
}

func isPrivilegedRole(role string) bool {
	switch role {
	case "SUPER_ADMIN", "ADMIN", "HR", "MANAGER":
		return true
	default:
		return false
	}
}
