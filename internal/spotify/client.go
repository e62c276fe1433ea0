// Package spotify клиент Spotify Web API.
//
// Для каталога (треки, поиск, артисты) используется client-credentials grant.
// По умолчанию токен запрашивается заново перед каждым обращением
// (TokenPolicyAlways); политика TokenPolicyCached переиспользует токен до истечения.
// Для входа через Spotify используется authorization-code flow.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
)

const (
	DefaultAuthURL  = "https://accounts.spotify.com/authorize"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultBaseURL  = "https://api.spotify.com/v1"

	searchLimit = 5
)

// TokenPolicy определяет, как получается токен приложения.
type TokenPolicy string

const (
	// TokenPolicyAlways новый grant перед каждым запросом.
	TokenPolicyAlways TokenPolicy = "always"
	// TokenPolicyCached токен переиспользуется, пока не истечет.
	TokenPolicyCached TokenPolicy = "cached"
)

// Recorder принимает метрики обращений к Spotify.
type Recorder interface {
	SpotifyRequest(operation, status string)
	SpotifyTokenGrant()
}

type noopRecorder struct{}

func (noopRecorder) SpotifyRequest(string, string) {}
func (noopRecorder) SpotifyTokenGrant()            {}

// Options параметры клиента. Пустые URL заменяются адресами Spotify.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPolicy  TokenPolicy
	AuthURL      string
	TokenURL     string
	BaseURL      string
	// HTTPClient без таймаута по умолчанию: отмена только через контекст вызывающего.
	HTTPClient *http.Client
	Recorder   Recorder
}

// Client обращается к Spotify Web API.
type Client struct {
	log         *slog.Logger
	credentials *clientcredentials.Config
	userAuth    *oauth2.Config
	baseURL     string
	httpClient  *http.Client
	policy      TokenPolicy
	cached      oauth2.TokenSource
	metrics     Recorder
}

// New создает клиент Spotify.
func New(log *slog.Logger, opts Options) *Client {
	if opts.AuthURL == "" {
		opts.AuthURL = DefaultAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.TokenPolicy == "" {
		opts.TokenPolicy = TokenPolicyAlways
	}

	c := &Client{
		log: log.With(slog.String("component", "spotify")),
		credentials: &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		userAuth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       []string{"user-read-private", "user-read-email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		policy:     opts.TokenPolicy,
		metrics:    opts.Recorder,
	}
	c.cached = oauth2.ReuseTokenSource(nil, grantSource{c: c})
	return c
}

type grantSource struct {
	c *Client
}

func (g grantSource) Token() (*oauth2.Token, error) {
	return g.c.grant(context.Background())
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) grant(ctx context.Context) (*oauth2.Token, error) {
	c.metrics.SpotifyTokenGrant()
	return c.credentials.Token(c.oauthContext(ctx))
}

// fetchAccessToken получает токен приложения согласно политике клиента.
func (c *Client) fetchAccessToken(ctx context.Context) (*oauth2.Token, error) {
	const op = "spotify.fetchAccessToken"

	var (
		tok *oauth2.Token
		err error
	)
	if c.policy == TokenPolicyCached {
		tok, err = c.cached.Token()
	} else {
		tok, err = c.grant(ctx)
	}
	if err != nil {
		c.log.Error("client credentials grant failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrUpstream, err)
	}
	return tok, nil
}

// GetSongByID возвращает трек по идентификатору Spotify.
// Идентификатор не проверяется локально.
func (c *Client) GetSongByID(ctx context.Context, trackID string) (*Track, error) {
	const op = "spotify.GetSongByID"

	tok, err := c.fetchAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var track Track
	if err := c.get(ctx, "track", tok, "/tracks/"+url.PathEscape(trackID), nil, &track); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &track, nil
}

// GetSongByName ищет треки по строке запроса, не более пяти результатов.
// Пустой запрос не является ошибкой: возвращается nil без обращения к Spotify.
func (c *Client) GetSongByName(ctx context.Context, query string) ([]Track, error) {
	const op = "spotify.GetSongByName"

	if strings.TrimSpace(query) == "" {
		c.log.Warn("search query is empty", sl.Op(op))
		return nil, nil
	}

	tok, err := c.fetchAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(searchLimit))

	var resp searchResponse
	if err := c.get(ctx, "search", tok, "/search", params, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Tracks.Items, nil
}

// GetArtistByID возвращает сокращенное описание артиста.
func (c *Client) GetArtistByID(ctx context.Context, artistID string) (*ArtistSummary, error) {
	const op = "spotify.GetArtistByID"

	tok, err := c.fetchAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var a artist
	if err := c.get(ctx, "artist", tok, "/artists/"+url.PathEscape(artistID), nil, &a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a.summary(), nil
}

// AuthCodeURL ссылка на страницу авторизации Spotify для входа пользователя.
func (c *Client) AuthCodeURL(state string) string {
	return c.userAuth.AuthCodeURL(state)
}

// Exchange меняет код авторизации на токены пользователя.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	const op = "spotify.Exchange"
	tok, err := c.userAuth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrUpstream, err)
	}
	return tok, nil
}

// CurrentUser возвращает профиль владельца пользовательского токена.
func (c *Client) CurrentUser(ctx context.Context, tok *oauth2.Token) (*UserProfile, error) {
	const op = "spotify.CurrentUser"
	var profile UserProfile
	if err := c.get(ctx, "me", tok, "/me", nil, &profile); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &profile, nil
}

func (c *Client) get(ctx context.Context, operation string, tok *oauth2.Token, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.SpotifyRequest(operation, "error")
		c.log.Error("request failed", slog.String("operation", operation), sl.Err(err))
		return fmt.Errorf("%w: %w", models.ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.metrics.SpotifyRequest(operation, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var eb apiErrorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
			apiErr.Message = eb.Error.Message
		}
		c.log.Error("spotify returned error",
			slog.String("operation", operation),
			slog.Int("status", resp.StatusCode),
			slog.String("message", apiErr.Message),
		)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", models.ErrUpstream, err)
	}
	return nil
}
