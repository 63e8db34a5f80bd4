// Package usage は、APIの利用方法を説明するJSONドキュメントを提供します。
// パラメータ不正の応答や未知のパスへの応答に添付されます。
package usage

// Version はAPIのリリース識別子です。
const Version = "2026-09-01"

// Endpoints は公開しているエンドポイントの一覧です。
type Endpoints struct {
	SingleBySlug string `json:"single_by_slug"`
	SingleByURL  string `json:"single_by_url"`
	BatchBySlugs string `json:"batch_by_slugs"`
	Catalog      string `json:"catalog"`
	Usage        string `json:"usage"`
	Health       string `json:"health"`
	Robots       string `json:"robots"`
}

// Document はAPI利用方法の全体です。
type Document struct {
	OK        bool      `json:"ok"`
	Version   string    `json:"version"`
	Endpoints Endpoints `json:"endpoints"`
	Examples  []string  `json:"examples"`
}

// New は利用方法ドキュメントを構築します。
func New() Document {
	return Document{
		OK:      true,
		Version: Version,
		Endpoints: Endpoints{
			SingleBySlug: "/api/wait?slug=<slug>",
			SingleByURL:  "/api/wait?url=<https://...>",
			BatchBySlugs: "/api/waits?slugs=<slug,slug,...>",
			Catalog:      "/api/catalog",
			Usage:        "/api/usage",
			Health:       "/api/health",
			Robots:       "/robots.txt",
		},
		Examples: []string{
			"/api/wait?slug=ev_spy_family_xr",
			"/api/waits?slugs=ev_spy_family_xr,harry_potter_fj,hollywood_dream",
			"/api/catalog",
		},
	}
}
