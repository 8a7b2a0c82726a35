package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/imagestore"
	"kasirbutik/backend/internal/report"
)

// multipart overhead allowed on top of the image itself
const uploadEnvelopeBytes = 1 << 20

var apiIndex = map[string]any{
	"name": "kasirbutik",
	"endpoints": map[string]string{
		"products":     "/api/products",
		"transactions": "/api/transactions",
		"debts":        "/api/debts",
		"dashboard":    "/api/dashboard/stats",
		"profit_chart": "/api/dashboard/profit-chart",
		"sales":        "/api/sales/summary",
		"reports":      "/api/reports/pdf",
		"health":       "/api/health",
	},
}

func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w, r)
		return
	}
	writeData(w, http.StatusOK, apiIndex)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w, r)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"status": "OK"})
}

func (a *API) handleConfigCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w, r)
		return
	}
	check := a.configCheck
	if check == nil {
		check = map[string]bool{}
	}
	writeData(w, http.StatusOK, check)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w, r)
		return
	}
	if !a.auth.Enabled() {
		a.writeError(w, r, http.StatusNotFound, errors.New("authentication is disabled"))
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, r, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		a.writeError(w, r, http.StatusUnauthorized, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.service.ListProducts(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, products)
	case http.MethodPost:
		if !a.allowRole(w, r, RoleAdmin) {
			return
		}
		var req domain.ProductCreateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			a.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, product)
	default:
		a.writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/products/")
	switch {
	case len(parts) == 1:
		a.handleProduct(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "image":
		a.handleProductImage(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "stock":
		a.handleProductStock(w, r, parts[0])
	default:
		a.writeNotFound(w, r)
	}
}

func (a *API) handleProduct(w http.ResponseWriter, r *http.Request, sku string) {
	switch r.Method {
	case http.MethodGet:
		product, err := a.service.GetProduct(r.Context(), sku)
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, product)
	case http.MethodPut:
		if !a.allowRole(w, r, RoleAdmin) {
			return
		}
		var req domain.ProductUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			a.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.UpdateProduct(r.Context(), sku, req)
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, product)
	case http.MethodDelete:
		if !a.allowRole(w, r, RoleAdmin) {
			return
		}
		if err := a.service.DeleteProduct(r.Context(), sku); err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"sku": sku, "deleted": true})
	default:
		a.writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleProductStock(w http.ResponseWriter, r *http.Request, sku string) {
	if r.Method != http.MethodPut {
		a.writeMethodNotAllowed(w, r)
		return
	}
	if !a.allowRole(w, r, RoleAdmin) {
		return
	}
	var req domain.StockAdjustRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.AdjustStock(r.Context(), sku, req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, product)
}

func (a *API) handleProductImage(w http.ResponseWriter, r *http.Request, sku string) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w, r)
		return
	}
	if !a.allowRole(w, r, RoleAdmin) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imagestore.MaxUploadBytes+uploadEnvelopeBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.writeError(w, r, http.StatusBadRequest, fmt.Errorf("image exceeds %d bytes", imagestore.MaxUploadBytes))
			return
		}
		a.writeError(w, r, http.StatusBadRequest, errors.New("no image file provided"))
		return
	}
	defer file.Close()

	content, err := imagestore.ReadLimited(file)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	img, err := a.service.AttachImage(r.Context(), sku, header.Filename, header.Header.Get("Content-Type"), content)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, img)
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		lines, err := a.service.ListTransactions(r.Context(), q.Get("start_date"), q.Get("end_date"))
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, lines)
	case http.MethodPost:
		var req domain.CheckoutRequest
		if err := decodeJSON(w, r, &req); err != nil {
			a.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.Checkout(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, resp)
	default:
		a.writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleDebts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		debts, err := a.service.ListDebts(r.Context())
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, debts)
	case http.MethodPost:
		var req domain.DebtCreateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			a.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		debt, err := a.service.CreateDebt(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, debt)
	default:
		a.writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleDebtActions(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/debts/")
	switch {
	case len(parts) == 1:
		a.handleDebt(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "payment":
		a.handleDebtPayment(w, r, parts[0])
	default:
		a.writeNotFound(w, r)
	}
}

func (a *API) handleDebt(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		debt, err := a.service.GetDebt(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, debt)
	case http.MethodPut:
		var req domain.DebtUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			a.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		debt, err := a.service.UpdateDebt(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, debt)
	case http.MethodDelete:
		if !a.allowRole(w, r, RoleAdmin) {
			return
		}
		if err := a.service.DeleteDebt(r.Context(), id); err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
	default:
		a.writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleDebtPayment(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w, r)
		return
	}
	var req domain.PaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.RecordPayment(r.Context(), id, req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (a *API) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w, r)
		return
	}
	stats, err := a.service.DashboardStats(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (a *API) handleProfitChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w, r)
		return
	}
	points, err := a.service.ProfitChart(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, points)
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w, r)
		return
	}

	var (
		data any
		err  error
	)
	switch r.URL.Path {
	case "/api/sales/today":
		data, err = a.service.SalesToday(r.Context())
	case "/api/sales/weekly":
		data, err = a.service.SalesWeekly(r.Context())
	case "/api/sales/monthly":
		data, err = a.service.SalesMonthly(r.Context())
	case "/api/sales/summary":
		data, err = a.service.SalesSummary(r.Context())
	default:
		a.writeNotFound(w, r)
		return
	}
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, data)
}

func (a *API) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	a.handleReport(w, r, "pdf", report.ContentTypePDF, report.WritePDF)
}

func (a *API) handleReportExcel(w http.ResponseWriter, r *http.Request) {
	a.handleReport(w, r, "xlsx", report.ContentTypeExcel, report.WriteExcel)
}

// handleReport renders into memory first so a rendering failure can still
// be answered with a JSON error.
func (a *API) handleReport(w http.ResponseWriter, r *http.Request, ext string, contentType string, render func(io.Writer, domain.SalesReport) error) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w, r)
		return
	}

	var req domain.ReportRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	sales, err := a.service.BuildReport(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, sales); err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(a.now(), ext)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
