package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/billingpulse/internal/billingreport/export"
	obslogger "github.com/smallbiznis/billingpulse/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) GetOverdueCustomers(c *gin.Context) {
	resp := s.reports.GetOverdueCustomers(c.Request.Context())
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ExportOverdueCustomersPDF(c *gin.Context) {
	ctx := c.Request.Context()
	resp := s.reports.GetOverdueCustomers(ctx)

	doc, err := export.OverdueReportPDF(resp, s.clock.Now().In(s.cfg.Location()))
	if err != nil {
		obslogger.WithContext(ctx, s.log).Error("overdue pdf export failed", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("overdue-customers-%s.pdf", s.today())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.PDFContentType, doc)
}

func (s *Server) GetPeriodReport(c *gin.Context) {
	from, to, err := parseDateRange(c.Query("dateFrom"), c.Query("dateTo"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	report := s.reports.GetPeriodReport(c.Request.Context(), from, to)
	c.JSON(http.StatusOK, report)
}

func (s *Server) ExportPeriodReportXLSX(c *gin.Context) {
	from, to, err := parseDateRange(c.Query("dateFrom"), c.Query("dateTo"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	report := s.reports.GetPeriodReport(ctx, from, to)
	doc, err := export.PeriodReportXLSX(report)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Error("period xlsx export failed", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("period-report-%s-%s.xlsx", from, to)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.XLSXContentType, doc)
}
