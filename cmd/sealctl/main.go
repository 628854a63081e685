// sealctl es la CLI de operación de trueseal: emisión de batches, consulta
// de historial, denuncias manuales y hashing de API keys.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/trueseal/internal/security/apikey"
)

type client struct {
	BaseURL   string
	AdminKey  string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte, admin bool) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if admin {
		req.Header.Set("X-Admin-API-Key", c.AdminKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL  = envOr("TRUESEAL_URL", "http://localhost:8080")
		adminKey = envOr("TRUESEAL_ADMIN_KEY", "")
		out      = envOr("TRUESEAL_OUT", "text")
		timeout  = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "sealctl",
		Short: "CLI de operación para trueseal",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base de la API (env TRUESEAL_URL)")
	root.PersistentFlags().StringVar(&adminKey, "admin-api-key", adminKey, "API key admin (env TRUESEAL_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{HTTP: &http.Client{Timeout: timeout}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.BaseURL, cl.AdminKey, cl.OutFormat = baseURL, adminKey, out
	}

	// ─── batch ───
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Emisión de batches de tokens",
	}

	var (
		issueProduct      string
		issueManufacturer string
		issueBatch        string
		issueCount        int
		issueTTL          string
	)
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Emitir tokens para un batch de producción (requiere admin key)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cl.AdminKey == "" {
				return fmt.Errorf("falta admin key (flag --admin-api-key o env TRUESEAL_ADMIN_KEY)")
			}
			if issueProduct == "" || issueManufacturer == "" || issueBatch == "" {
				return fmt.Errorf("--product, --manufacturer y --batch son requeridos")
			}
			payload := map[string]any{
				"product_ref":      issueProduct,
				"manufacturer_ref": issueManufacturer,
				"batch_number":     issueBatch,
				"count":            issueCount,
			}
			if issueTTL != "" {
				payload["ttl"] = issueTTL
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/v1/admin/batch", b, true)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("emisión falló: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&issueProduct, "product", "", "referencia de producto")
	issueCmd.Flags().StringVar(&issueManufacturer, "manufacturer", "", "referencia de fabricante")
	issueCmd.Flags().StringVar(&issueBatch, "batch", "", "número de batch")
	issueCmd.Flags().IntVar(&issueCount, "count", 1, "cantidad de tokens")
	issueCmd.Flags().StringVar(&issueTTL, "ttl", "", "vencimiento opcional (formato Go, ej. 8760h)")
	batchCmd.AddCommand(issueCmd)

	// ─── history ───
	var (
		histAfterSeq int64
		histLimit    int
	)
	historyCmd := &cobra.Command{
		Use:   "history <token-id>",
		Short: "Historial append-only de un token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := "?after_seq=" + strconv.FormatInt(histAfterSeq, 10)
			if histLimit > 0 {
				q += "&limit=" + strconv.Itoa(histLimit)
			}
			status, body, err := cl.do("GET", "/v1/history/"+args[0]+q, nil, false)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("history falló: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	historyCmd.Flags().Int64Var(&histAfterSeq, "after-seq", 0, "continuar después de este seq")
	historyCmd.Flags().IntVar(&histLimit, "limit", 0, "máximo de entradas por página")

	// ─── report ───
	var (
		reportReporter string
		reportEvidence string
	)
	reportCmd := &cobra.Command{
		Use:   "report <secret>",
		Short: "Denunciar un producto como counterfeit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"secret":       args[0],
				"reporter_ref": reportReporter,
				"evidence":     reportEvidence,
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/v1/report", b, false)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("report falló: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	reportCmd.Flags().StringVar(&reportReporter, "reporter", "", "referencia del denunciante")
	reportCmd.Flags().StringVar(&reportEvidence, "evidence", "", "descripción de la evidencia")

	// ─── keys ───
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Utilidades de API keys",
	}
	hashCmd := &cobra.Command{
		Use:   "hash <key>",
		Short: "Generar el hash bcrypt de una admin key (para auth.admin_key_hash)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := apikey.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Println(h)
			return nil
		},
	}
	keysCmd.AddCommand(hashCmd)

	root.AddCommand(batchCmd, historyCmd, reportCmd, keysCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
