package seal

// ReportRequest representa una denuncia manual de counterfeit.
type ReportRequest struct {
	Secret      string `json:"secret"`
	ReporterRef string `json:"reporter_ref,omitempty"`
	Evidence    string `json:"evidence,omitempty"`
}

// ReportResponse confirma la denuncia.
type ReportResponse struct {
	ReportID   string `json:"report_id"`
	TokenFound bool   `json:"token_found"`
	// Consumed indica que el token ya estaba consumido y el reporte solo
	// agregó evidencia al historial.
	Consumed bool `json:"consumed"`
}
