package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const productCardSelector = `div.product.mb-4.ng-star-inserted`

// UnknownVendor is the sentinel used when no vendor name can be resolved.
const UnknownVendor = "UnknownVendor"

const vendorTitleSelector = ".client-title"

// timestampLayout matches ISO-8601 with second precision.
const timestampLayout = "2006-01-02T15:04:05"

// productCardsJS maps every rendered product card to a RawCard. Missing
// sub-elements yield empty strings, never errors.
const productCardsJS = `(() => {
  const cards = Array.from(document.querySelectorAll('` + productCardSelector + `'));
  return cards.map((el, idx) => {
    const getText = (sel) => {
      const node = el.querySelector(sel);
      return node ? node.textContent.trim() : "";
    };

    const name = getText("div.product-title");
    const qty = getText("div.product-packaging-string");
    const priceContainer = el.querySelector("div.price-container");
    let price = "";
    let oldPrice = "";
    if (priceContainer) {
      const curr = priceContainer.querySelector(".price, .new-price");
      const old = priceContainer.querySelector(".old-price");
      price = curr ? curr.textContent.trim() : priceContainer.textContent.trim();
      oldPrice = old ? old.textContent.trim() : "";
    }

    const imgEl = el.querySelector("img");
    const outOfStock = !!el.querySelector(".out-of-stock, .product-out-of-stock");
    const sku = el.getAttribute("data-id") || el.getAttribute("data-product-id") || "";

    return {
      seen_order: idx + 1,
      name: name,
      quantity: qty,
      price: price,
      old_price: oldPrice,
      image_url: imgEl ? imgEl.src : "",
      out_of_stock: outOfStock,
      sku: sku
    };
  });
})()`

// extractProducts queries the loaded page for product cards and stamps each
// record with the task context. An empty card list is a legitimate outcome,
// not an error.
func extractProducts(ctx context.Context, sess Session, task Task, capturedAt time.Time) ([]ProductRecord, error) {
	var cards []RawCard
	if err := sess.Evaluate(ctx, productCardsJS, &cards); err != nil {
		return nil, fmt.Errorf("query product cards: %w", err)
	}

	records := make([]ProductRecord, 0, len(cards))
	for _, c := range cards {
		records = append(records, ProductRecord{
			SeenOrder:    c.SeenOrder,
			Name:         c.Name,
			Quantity:     c.Quantity,
			Price:        c.Price,
			OldPrice:     c.OldPrice,
			ImageURL:     c.ImageURL,
			OutOfStock:   c.OutOfStock,
			SKU:          c.SKU,
			CategoryURL:  task.CategoryURL,
			LocationUsed: task.Location,
			Timestamp:    capturedAt.Format(timestampLayout),
		})
	}
	return records, nil
}

// resolveVendor prefers the page's title element and falls back to the
// vendor slug in the category URL path.
func resolveVendor(ctx context.Context, sess Session, categoryURL string, timeout time.Duration) string {
	if sess.IsVisible(ctx, vendorTitleSelector, timeout) {
		var title string
		js := fmt.Sprintf(`(document.querySelector(%q) || {textContent: ""}).textContent.trim()`, vendorTitleSelector)
		if err := sess.Evaluate(ctx, js, &title); err == nil && title != "" {
			return title
		}
	}
	return vendorFromURL(categoryURL)
}

// vendorFromURL derives a display name from the vendor slug, e.g.
// /en-eg/client/sarai-market-al-ekbal/category/123 -> "Sarai Market Al Ekbal".
func vendorFromURL(categoryURL string) string {
	parsed, err := url.Parse(categoryURL)
	if err != nil {
		return UnknownVendor
	}
	parts := strings.Split(parsed.Path, "/")
	if len(parts) < 4 || parts[3] == "" {
		return UnknownVendor
	}
	name := strings.ReplaceAll(parts[3], "-", " ")
	return cases.Title(language.English).String(name)
}

// localeFromCategoryURL takes the first path segment as the locale, falling
// back to the configured default.
func localeFromCategoryURL(categoryURL, defaultLocale string) string {
	parsed, err := url.Parse(categoryURL)
	if err != nil {
		return defaultLocale
	}
	parts := strings.Split(parsed.Path, "/")
	if len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}
	return defaultLocale
}
