package untis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"

	appLog "untiswidget/internal/log"
)

var (
	// ErrUnauthorized is returned when the server rejects the credentials
	// or the session expired.
	ErrUnauthorized = errors.New("untis: unauthorized")
	// ErrNoElement is returned when no timetable owner can be determined.
	ErrNoElement = errors.New("untis: no timetable element selected")
)

// Source is the remote data source consumed by the widget. Every method
// returns the raw records of one domain.
type Source interface {
	Timetable(ctx context.Context, week time.Time) (RawWeek, error)
	Exams(ctx context.Context, from, to time.Time) ([]RawExam, error)
	Grades(ctx context.Context, from, to time.Time) ([]RawGrade, error)
	Absences(ctx context.Context, from, to time.Time) ([]RawAbsence, error)
	ClassRoles(ctx context.Context, from, to time.Time) ([]RawClassRole, error)
	SchoolYears(ctx context.Context) ([]RawSchoolYear, error)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, e.g. "https://mese.webuntis.com".
	BaseURL     string
	School      string
	ElementType ElementType
	ElementID   int
	Credentials CredentialProvider
	// HTTPClient is used as-is when set; its Jar must be non-nil.
	HTTPClient *http.Client
}

// Session is the result of the JSON-RPC authenticate call.
type Session struct {
	SessionID  string `json:"sessionId"`
	PersonType int    `json:"personType"`
	PersonID   int    `json:"personId"`
	ClassID    int    `json:"klasseId"`
}

// Client talks to WebUntis over HTTP using a cookie session.
type Client struct {
	http        *http.Client
	baseURL     string
	school      string
	elementType ElementType
	elementID   int
	creds       CredentialProvider

	mu      sync.Mutex
	session *Session
}

// NewClient creates a Client. It does not contact the server.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("untis: base URL is empty")
	}
	if opts.School == "" {
		return nil, errors.New("untis: school is empty")
	}
	if opts.Credentials == nil {
		return nil, errors.New("untis: credential provider is nil")
	}
	hc := opts.HTTPClient
	if hc == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc = &http.Client{Timeout: 15 * time.Second, Jar: jar}
	}
	return &Client{
		http:        hc,
		baseURL:     opts.BaseURL,
		school:      opts.School,
		elementType: opts.ElementType,
		elementID:   opts.ElementID,
		creds:       opts.Credentials,
	}, nil
}

type rpcRequest struct {
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	JSONRPC string `json:"jsonrpc"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// bad credentials / not authenticated
const (
	rpcBadCredentials   = -8504
	rpcNotAuthenticated = -8520
)

func (c *Client) rpc(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{ID: "untiswidget", Method: method, Params: params, JSONRPC: "2.0"})
	if err != nil {
		return err
	}
	u := c.baseURL + "/WebUntis/jsonrpc.do?school=" + url.QueryEscape(c.school)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("untis rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("untis rpc %s: %s", method, resp.Status)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("untis rpc %s: decode: %w", method, err)
	}
	if rr.Error != nil {
		if rr.Error.Code == rpcBadCredentials || rr.Error.Code == rpcNotAuthenticated {
			return fmt.Errorf("untis rpc %s: %s: %w", method, rr.Error.Message, ErrUnauthorized)
		}
		return fmt.Errorf("untis rpc %s: %d %s", method, rr.Error.Code, rr.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(rr.Result, out)
}

// Login authenticates once; later calls reuse the session.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session, nil
	}

	cred, err := c.creds.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	var s Session
	params := map[string]string{"user": cred.Username, "password": cred.Password, "client": "untiswidget"}
	if err := c.rpc(ctx, "authenticate", params, &s); err != nil {
		return nil, err
	}
	appLog.Info("untis login", "server", redactURL(c.baseURL), "school", c.school, "person_type", s.PersonType)
	c.session = &s
	return c.session, nil
}

// element returns the timetable owner, defaulting to the logged-in person.
func (c *Client) element(s *Session) (ElementType, int, error) {
	if c.elementID != 0 {
		t := c.elementType
		if t == 0 {
			t = ElementStudent
		}
		return t, c.elementID, nil
	}
	if s.PersonID == 0 {
		return 0, 0, ErrNoElement
	}
	return ElementType(s.PersonType), s.PersonID, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if _, err := c.Login(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("untis get %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		return fmt.Errorf("untis get %s: %w", path, ErrUnauthorized)
	default:
		return fmt.Errorf("untis get %s: %s", path, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("untis get %s: decode: %w", path, err)
	}
	return nil
}

// DateInt formats t as the numeric YYYYMMDD used by the API.
func DateInt(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

type weeklyResponse struct {
	Data struct {
		Result struct {
			Data struct {
				ElementPeriods map[string][]RawLesson `json:"elementPeriods"`
				Elements       []RawElement           `json:"elements"`
			} `json:"data"`
		} `json:"result"`
	} `json:"data"`
}

// Timetable fetches the ISO week containing week.
func (c *Client) Timetable(ctx context.Context, week time.Time) (RawWeek, error) {
	s, err := c.Login(ctx)
	if err != nil {
		return RawWeek{}, err
	}
	et, id, err := c.element(s)
	if err != nil {
		return RawWeek{}, err
	}

	q := url.Values{}
	q.Set("elementType", strconv.Itoa(int(et)))
	q.Set("elementId", strconv.Itoa(id))
	q.Set("date", week.Format("2006-01-02"))
	q.Set("formatId", "1")

	var wr weeklyResponse
	if err := c.get(ctx, "/WebUntis/api/public/timetable/weekly/data", q, &wr); err != nil {
		return RawWeek{}, err
	}

	inner := wr.Data.Result.Data
	out := RawWeek{
		Lessons:  inner.ElementPeriods[strconv.Itoa(id)],
		Elements: inner.Elements,
	}
	appLog.Debug("untis timetable fetched", "week", week.Format("2006-01-02"), "lessons", len(out.Lessons), "elements", len(out.Elements))
	return out, nil
}

func (c *Client) rangeQuery(from, to time.Time) url.Values {
	q := url.Values{}
	q.Set("startDate", strconv.Itoa(DateInt(from)))
	q.Set("endDate", strconv.Itoa(DateInt(to)))
	return q
}

func (c *Client) Exams(ctx context.Context, from, to time.Time) ([]RawExam, error) {
	s, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	_, id, err := c.element(s)
	if err != nil {
		return nil, err
	}
	q := c.rangeQuery(from, to)
	q.Set("studentId", strconv.Itoa(id))
	q.Set("klasseId", "-1")

	var resp struct {
		Data struct {
			Exams []RawExam `json:"exams"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/WebUntis/api/exams", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Exams, nil
}

func (c *Client) Grades(ctx context.Context, from, to time.Time) ([]RawGrade, error) {
	s, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	_, id, err := c.element(s)
	if err != nil {
		return nil, err
	}
	q := c.rangeQuery(from, to)
	q.Set("personId", strconv.Itoa(id))

	var resp struct {
		Data []RawGrade `json:"data"`
	}
	if err := c.get(ctx, "/WebUntis/api/classreg/grade/gradeList", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) Absences(ctx context.Context, from, to time.Time) ([]RawAbsence, error) {
	s, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	_, id, err := c.element(s)
	if err != nil {
		return nil, err
	}
	q := c.rangeQuery(from, to)
	q.Set("studentId", strconv.Itoa(id))
	q.Set("excuseStatusId", "-1")

	var resp struct {
		Data struct {
			Absences []RawAbsence `json:"absences"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/WebUntis/api/classreg/absences/students", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Absences, nil
}

func (c *Client) ClassRoles(ctx context.Context, from, to time.Time) ([]RawClassRole, error) {
	s, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	et, id, err := c.element(s)
	if err != nil {
		return nil, err
	}
	q := c.rangeQuery(from, to)
	q.Set("elementType", strconv.Itoa(int(et)))
	q.Set("elementId", strconv.Itoa(id))

	var resp struct {
		Data struct {
			ClassRoles []RawClassRole `json:"classRoles"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/WebUntis/api/classreg/classservices", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data.ClassRoles, nil
}

func (c *Client) SchoolYears(ctx context.Context) ([]RawSchoolYear, error) {
	if _, err := c.Login(ctx); err != nil {
		return nil, err
	}
	var years []RawSchoolYear
	if err := c.rpc(ctx, "getSchoolyears", map[string]any{}, &years); err != nil {
		return nil, err
	}
	return years, nil
}

// Logout ends the server session. Errors are logged only.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s == nil {
		return
	}
	if err := c.rpc(ctx, "logout", map[string]any{}, nil); err != nil {
		appLog.Error("untis logout failed", err, "server", redactURL(c.baseURL))
	}
}

// redactURL keeps only scheme and host for logging.
func redactURL(u string) string {
	p, err := url.Parse(u)
	if err != nil || p.Host == "" {
		return "untis://...(redacted)"
	}
	return p.Scheme + "://" + p.Host
}
