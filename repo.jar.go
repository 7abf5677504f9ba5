package main

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var _ http.CookieJar = (*BoltCookieJar)(nil) // ensure BoltCookieJar implements http.CookieJar.

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open the cookies database")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return errors.Wrapf(errB, "failed to create %s bucket", config.BoltDB.BucketName)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to set up bucket")
	}
	return db, nil
}

// storedCookie is the subset of cookie attributes worth persisting
// between two runs of the application.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

// BoltCookieJar is an http cookie jar which persists its cookies into
// a local bolt database, keyed by host. It plays the role the browser
// cookie store had for the storefront: the session and csrf cookies
// set by the backend survive application restarts.
type BoltCookieJar struct {
	logger *zap.Logger
	config *BoltDBConfig
	client *bolt.DB
	clock  Clocker
	mu     sync.Mutex
	inner  *cookiejar.Jar
}

// NewBoltCookieJar provides a jar pre-loaded with the cookies
// previously persisted for the given base url.
func NewBoltCookieJar(logger *zap.Logger, config *BoltDBConfig, client *bolt.DB, clock Clocker, base *url.URL) (*BoltCookieJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build in-memory jar")
	}
	jar := &BoltCookieJar{
		logger: logger,
		config: config,
		client: client,
		clock:  clock,
		inner:  inner,
	}
	if err := jar.restore(base); err != nil {
		return nil, err
	}
	return jar, nil
}

// Close shuts down the underlying cookies database.
func (jar *BoltCookieJar) Close() error {
	return jar.client.Close()
}

// SetCookies implements http.CookieJar and persists the merged host
// cookies into the bolt database.
func (jar *BoltCookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	jar.mu.Lock()
	defer jar.mu.Unlock()
	jar.inner.SetCookies(u, cookies)
	if err := jar.persist(u, cookies); err != nil {
		// A persistence failure only loses cookies across restarts,
		// the in-memory jar stays correct for the current run.
		jar.logger.Error("jar: failed to persist cookies", zap.String("host", u.Host), zap.Error(err))
	}
}

// Cookies implements http.CookieJar.
func (jar *BoltCookieJar) Cookies(u *url.URL) []*http.Cookie {
	jar.mu.Lock()
	defer jar.mu.Unlock()
	return jar.inner.Cookies(u)
}

// CookieValue provides the value of the named cookie for the given url.
// It returns an empty value when the cookie is absent.
func (jar *BoltCookieJar) CookieValue(u *url.URL, name string) string {
	for _, cookie := range jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// persist merges the incoming cookies into the persisted host record.
// Expired or max-age deleted cookies are removed from the record.
func (jar *BoltCookieJar) persist(u *url.URL, cookies []*http.Cookie) error {
	stored, err := jar.load(u.Host)
	if err != nil {
		return err
	}
	merged := make(map[string]storedCookie, len(stored)+len(cookies))
	for _, sc := range stored {
		merged[sc.Name] = sc
	}
	for _, c := range cookies {
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(jar.clock.Now())) {
			delete(merged, c.Name)
			continue
		}
		merged[c.Name] = storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
	}
	records := make([]storedCookie, 0, len(merged))
	for _, sc := range merged {
		records = append(records, sc)
	}
	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "failed to encode cookies record")
	}
	return jar.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(jar.config.BucketName)).Put([]byte(u.Host), data)
	})
}

// load retrieves the persisted cookies record of a host.
func (jar *BoltCookieJar) load(host string) ([]storedCookie, error) {
	var records []storedCookie
	tx, err := jar.client.Begin(false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cookies read transaction")
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(jar.config.BucketName)).Get([]byte(host))
	if result == nil {
		return nil, nil
	}
	if err := json.Unmarshal(result, &records); err != nil {
		return nil, errors.Wrap(err, "failed to decode cookies record")
	}
	return records, nil
}

// restore feeds the in-memory jar with the cookies persisted for the base url.
func (jar *BoltCookieJar) restore(base *url.URL) error {
	records, err := jar.load(base.Host)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	cookies := make([]*http.Cookie, 0, len(records))
	for i := range records {
		sc := records[i]
		if !sc.Expires.IsZero() && sc.Expires.Before(jar.clock.Now()) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Path:     sc.Path,
			Domain:   sc.Domain,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HTTPOnly,
		})
	}
	jar.inner.SetCookies(base, cookies)
	jar.logger.Info("jar: restored persisted cookies", zap.String("host", base.Host), zap.Int("count", len(cookies)))
	return nil
}
