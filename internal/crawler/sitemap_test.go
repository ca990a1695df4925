package crawler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"

	"github.com/nao1215/sitemirror/internal/urlkey"
)

const sitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{base}}/</loc><lastmod>2024-01-01</lastmod></url>
  <url><loc> {{base}}/blog/ </loc></url>
  <url><loc>{{base}}/about.html</loc></url>
</urlset>`

func xmlDoc(body string) route {
	return route{status: http.StatusOK, contentType: "application/xml", body: body}
}

func newTestSitemapReader(t *testing.T, site *testSite) *SitemapReader {
	t.Helper()
	norm, err := urlkey.NewNormalizer(site.base())
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}
	return NewSitemapReader(site.client(t), norm, 0, nil)
}

func TestParseSitemap(t *testing.T) {
	t.Parallel()

	t.Run("urlset", func(t *testing.T) {
		t.Parallel()
		locs, children, err := parseSitemap([]byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
			<url><loc>https://example.com/</loc></url>
			<url><loc>https://example.com/a.html</loc></url>
		</urlset>`))
		if err != nil {
			t.Fatalf("parseSitemap() error = %v", err)
		}
		want := []string{"https://example.com/", "https://example.com/a.html"}
		if !slices.Equal(locs, want) {
			t.Errorf("locs = %v, want %v", locs, want)
		}
		if len(children) != 0 {
			t.Errorf("children = %v, want none", children)
		}
	})

	t.Run("sitemap index", func(t *testing.T) {
		t.Parallel()
		locs, children, err := parseSitemap([]byte(`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
			<sitemap><loc>https://example.com/sitemap-posts.xml</loc></sitemap>
		</sitemapindex>`))
		if err != nil {
			t.Fatalf("parseSitemap() error = %v", err)
		}
		if len(locs) != 0 {
			t.Errorf("locs = %v, want none", locs)
		}
		if !slices.Equal(children, []string{"https://example.com/sitemap-posts.xml"}) {
			t.Errorf("children = %v", children)
		}
	})
}

func TestSitemapReader_Read(t *testing.T) {
	t.Parallel()

	t.Run("reads urlset", func(t *testing.T) {
		t.Parallel()
		site := newTestSite(t, map[string]route{"/sitemap.xml": xmlDoc(sitemapXML)})
		reader := newTestSitemapReader(t, site)

		locs, err := reader.Read(context.Background(), site.URL+"/sitemap.xml")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		want := []string{site.URL + "/", site.URL + "/blog/", site.URL + "/about.html"}
		if !slices.Equal(locs, want) {
			t.Errorf("Read() = %v, want %v", locs, want)
		}
	})

	t.Run("follows index and skips broken children", func(t *testing.T) {
		t.Parallel()
		site := newTestSite(t, map[string]route{
			"/sitemap.xml": xmlDoc(`<sitemapindex>
				<sitemap><loc>{{base}}/posts.xml</loc></sitemap>
				<sitemap><loc>{{base}}/missing.xml</loc></sitemap>
			</sitemapindex>`),
			"/posts.xml": xmlDoc(`<urlset><url><loc>{{base}}/post-1.html</loc></url></urlset>`),
		})
		reader := newTestSitemapReader(t, site)

		locs, err := reader.Read(context.Background(), site.URL+"/sitemap.xml")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if !slices.Equal(locs, []string{site.URL + "/post-1.html"}) {
			t.Errorf("Read() = %v", locs)
		}
	})

	t.Run("external child sitemaps are not fetched", func(t *testing.T) {
		t.Parallel()
		external := newTestSite(t, map[string]route{
			"/other.xml": xmlDoc(`<urlset><url><loc>{{base}}/elsewhere.html</loc></url></urlset>`),
		})
		site := newTestSite(t, map[string]route{
			"/sitemap.xml": xmlDoc(`<sitemapindex>
				<sitemap><loc>` + external.URL + `/other.xml</loc></sitemap>
				<sitemap><loc>{{base}}/posts.xml</loc></sitemap>
			</sitemapindex>`),
			"/posts.xml": xmlDoc(`<urlset><url><loc>{{base}}/post-1.html</loc></url></urlset>`),
		})
		reader := newTestSitemapReader(t, site)

		locs, err := reader.Read(context.Background(), site.URL+"/sitemap.xml")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if !slices.Equal(locs, []string{site.URL + "/post-1.html"}) {
			t.Errorf("Read() = %v", locs)
		}
		if n := external.hitCount("/other.xml"); n != 0 {
			t.Errorf("external sitemap fetched %d times, want 0", n)
		}
	})

	t.Run("404 is an error", func(t *testing.T) {
		t.Parallel()
		site := newTestSite(t, nil)
		reader := newTestSitemapReader(t, site)

		if _, err := reader.Read(context.Background(), site.URL+"/sitemap.xml"); !errors.Is(err, ErrSitemapStatus) {
			t.Errorf("Read() error = %v, want ErrSitemapStatus", err)
		}
	})

	t.Run("empty urlset is an error", func(t *testing.T) {
		t.Parallel()
		site := newTestSite(t, map[string]route{"/sitemap.xml": xmlDoc(`<urlset></urlset>`)})
		reader := newTestSitemapReader(t, site)

		if _, err := reader.Read(context.Background(), site.URL+"/sitemap.xml"); !errors.Is(err, ErrSitemapEmpty) {
			t.Errorf("Read() error = %v, want ErrSitemapEmpty", err)
		}
	})
}
