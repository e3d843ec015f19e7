package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/travelog-backend/internal/platform/ctxutil"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

const (
	DefaultBaseURL = "http://apis.data.go.kr/1360000/VilageFcstInfoService_2.0/getUltraSrtNcst"

	// The nowcast for hour H is published around H:40.
	publishLag = 45 * time.Minute
)

type Config struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
	// Location decides which calendar hour base_time refers to.
	Location *time.Location
}

type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, fmt.Errorf("missing WEATHER_API_KEY")
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Client{
		log:        log.With("client", "WeatherClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}, nil
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	if msg == "" {
		msg = "<empty body>"
	}
	return fmt.Sprintf("weather http %d: %s", e.StatusCode, msg)
}

// BaseDateTime returns the base_date (yyyyMMdd) and base_time (HH00) of the
// latest published nowcast at now.
func BaseDateTime(now time.Time, loc *time.Location) (string, string) {
	if loc == nil {
		loc = time.UTC
	}
	t := now.In(loc).Add(-publishLag)
	return t.Format("20060102"), t.Format("15") + "00"
}

// CurrentWeather fetches the latest nowcast for grid point (x, y).
func (c *Client) CurrentWeather(ctx context.Context, x, y int) (*Observation, error) {
	baseDate, baseTime := BaseDateTime(c.now(), c.cfg.Location)
	return c.fetch(ctx, x, y, baseDate, baseTime)
}

func (c *Client) fetch(ctx context.Context, x, y int, baseDate, baseTime string) (*Observation, error) {
	q := url.Values{}
	q.Set("serviceKey", c.cfg.ServiceKey)
	q.Set("numOfRows", "10")
	q.Set("pageNo", "1")
	q.Set("dataType", "JSON")
	q.Set("base_date", baseDate)
	q.Set("base_time", baseTime)
	q.Set("nx", strconv.Itoa(x))
	q.Set("ny", strconv.Itoa(y))

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("weather read body: %w", readErr)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	obs := &Observation{X: x, Y: y, BaseDate: baseDate, BaseTime: baseTime}
	if err := parseBody(raw, obs); err != nil {
		return nil, err
	}
	c.log.Debug("Weather observation fetched", "nx", x, "ny", y, "base_date", baseDate, "base_time", baseTime)
	return obs, nil
}
