// Package crawler mirrors one site: it seeds a frontier from the sitemap,
// fetches every internal page and asset exactly once, and records an
// outcome for each attempt.
//
// # Components
//
//   - Extractor: pulls page and asset references out of HTML and CSS
//   - Scope: optional glob filters applied to discovered links
//   - Ledger: the visited sets, the single point that guarantees at-most-once fetching
//   - Frontier: pending pages plus queued asset tasks, shared by all workers
//   - Executor: fetches one URL, saves it and hands HTML/CSS to the Extractor
//   - SitemapReader: reads sitemap.xml and sitemap indexes
//   - Spider and Session: drive one crawl through INIT, SEEDING, CRAWLING, DRAINING and DONE
//
// # Usage
//
//	spider, err := crawler.NewSpider(baseURL, client, storage.NewMirror("downloaded_site"),
//		crawler.WithConcurrency(4))
//	if err != nil {
//		return err
//	}
//	report := model.NewReport(baseURL)
//	err = spider.Run(ctx, report)
//
// Per-URL failures never stop a crawl. They are recorded in the report and
// the frontier keeps draining.
package crawler
