package http

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/choplife/choplifeib/internal/auth"
	"github.com/choplife/choplifeib/internal/database/events"
	"github.com/choplife/choplifeib/internal/logging"
	"github.com/choplife/choplifeib/internal/readonly"
)

// LoadTemplates parses the page templates from dir when set, otherwise from
// the embedded set.
func LoadTemplates(dir string, embedded fs.FS) (*template.Template, error) {
	tmpl := template.New("").Funcs(templateFuncs())
	if dir != "" {
		return tmpl.ParseGlob(filepath.Join(dir, "*.html"))
	}
	if embedded == nil {
		return nil, fmt.Errorf("no templates configured")
	}
	return tmpl.ParseFS(embedded, "*.html")
}

var (
	titleCaser = cases.Title(language.English)
	nairaPrint = message.NewPrinter(language.English)
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"title": func(v any) string {
			return titleCaser.String(strings.ReplaceAll(fmt.Sprint(v), "_", " "))
		},
		"naira":      formatNaira,
		"date":       func(t time.Time) string { return t.In(events.Lagos).Format("Mon 2 Jan 2006") },
		"clock":      func(t time.Time) string { return t.In(events.Lagos).Format("3:04 PM") },
		"datetime":   func(t time.Time) string { return t.In(events.Lagos).Format("2 Jan 2006, 3:04 PM") },
		"inputTime":  formatInputTime,
		"stars":      stars,
		"rating":     func(avg float64) string { return strconv.FormatFloat(avg, 'f', 1, 64) },
		"json":       toJS,
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"truncate":   truncate,
		"pageURL":    pageURL,
		"deref":      derefTime,
		"derefFloat": derefFloat,
		"derefUint":  derefUint,
		"dict":       dict,
		"list":       func(v ...int) []int { return v },
		"strs":       func(v ...string) []string { return v },
		"float":      func(n int) float64 { return float64(n) },
	}
}

// formatNaira renders whole naira with thousands separators; zero is free.
func formatNaira(amount int64) string {
	if amount == 0 {
		return "Free"
	}
	return nairaPrint.Sprintf("₦%d", amount)
}

// formatInputTime is the value format of <input type="datetime-local"> in
// Lagos time. Nil and zero times render empty.
func formatInputTime(v any) string {
	var t time.Time
	switch tv := v.(type) {
	case time.Time:
		t = tv
	case *time.Time:
		if tv == nil {
			return ""
		}
		t = *tv
	}
	if t.IsZero() {
		return ""
	}
	return t.In(events.Lagos).Format("2006-01-02T15:04")
}

func stars(avg float64) string {
	full := int(avg + 0.5)
	if full > 5 {
		full = 5
	}
	if full < 0 {
		full = 0
	}
	return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
}

func toJS(v any) template.JS {
	data, err := json.Marshal(v)
	if err != nil {
		return template.JS("null")
	}
	return template.JS(data)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

// pageURL rebuilds the current query with a different page number.
func pageURL(path string, query url.Values, page int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	return path + "?" + q.Encode()
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefUint(u *uint) uint {
	if u == nil {
		return 0
	}
	return *u
}

// dict builds a map from alternating keys and values so partials can take
// more than one argument.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict needs an even number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// Renderer renders full pages with the data every layout needs.
type Renderer struct {
	debounceMS      int64
	analyticsScript template.HTML
	now             func() time.Time
}

func NewRenderer(debounce time.Duration, analyticsScript template.HTML, now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{debounceMS: debounce.Milliseconds(), analyticsScript: analyticsScript, now: now}
}

// HTML renders the named template. Keys already present in data win over
// the layout defaults.
func (r *Renderer) HTML(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	for k, v := range r.base(c) {
		if _, ok := data[k]; !ok {
			data[k] = v
		}
	}
	c.HTML(status, name, data)
}

func (r *Renderer) base(c *gin.Context) gin.H {
	return gin.H{
		"Auth":             GetAuthTemplateData(c),
		"ReadOnly":         readonly.Enabled(c),
		"CSRFToken":        auth.GetCSRFToken(c),
		"CSRFField":        auth.CSRFFieldName,
		"Error":            c.Query("error"),
		"Notice":           c.Query("notice"),
		"Path":             c.Request.URL.Path,
		"Query":            c.Request.URL.Query(),
		"SearchDebounceMS": r.debounceMS,
		"AnalyticsScript":  r.analyticsScript,
		"Year":             r.now().In(events.Lagos).Year(),
	}
}

// NotFound renders the not-found page, or JSON for API callers.
func (r *Renderer) NotFound(c *gin.Context, message string) {
	if wantsJSON(c) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: message, Code: "not_found"})
		return
	}
	r.HTML(c, http.StatusNotFound, "not-found.html", gin.H{
		"Title":   "Not found",
		"Message": message,
	})
}

// Failure logs err and renders the generic failed-to-load page.
func (r *Renderer) Failure(c *gin.Context, err error, context string) {
	if wantsJSON(c) {
		respondInternalError(c, err, context)
		return
	}
	_ = c.Error(err)
	logging.Component("http").Error().Err(err).Str("op", context).Msg("page failed")
	r.HTML(c, http.StatusInternalServerError, "error.html", gin.H{
		"Title":   "Something went wrong",
		"Message": "Failed to load this page. Please try again.",
	})
}
