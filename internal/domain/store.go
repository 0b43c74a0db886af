package domain

import (
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/voyager-tech/go-backend/pkg/e"
)

// Store описывает источник скрапинга (интернет-магазин)
type Store struct {
	ID        int64
	Name      string // хост без www., уникален
	URL       string
	Currency  string
	CreatedAt time.Time
}

func NewStore(name string, baseURL string) *Store {
	return &Store{
		Name: name,
		URL:  baseURL,
	}
}

// StoreNameFromURL детерминированно выводит имя магазина из URL: хост в нижнем регистре без "www.".
func StoreNameFromURL(raw string) (string, error) {
	u, err := ParseHTTPURL(raw)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www."), nil
}

// CanonicalProductURL приводит URL товара к ключу идентичности: хост в нижнем регистре,
// без порта по умолчанию и без фрагмента. Путь и query чувствительны к регистру и не меняются.
func CanonicalProductURL(raw string) (string, error) {
	u, err := ParseHTTPURL(raw)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !isDefaultPort(u.Scheme, port) {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

// ParseHTTPURL проверяет, что строка — абсолютный http(s) URL с хостом.
func ParseHTTPURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, e.NewValidationError(-1, "url", "must not be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, e.NewValidationError(-1, "url", "malformed url")
	}
	u.Scheme = strings.ToLower(u.Scheme)

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, e.NewValidationError(-1, "url", "scheme must be http or https")
	}

	if u.Hostname() == "" {
		return nil, e.NewValidationError(-1, "url", "host is required")
	}

	return u, nil
}
