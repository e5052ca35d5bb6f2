package detect

import (
	"testing"

	"github.com/nao1215/pixelscan/internal/model"
)

func TestExtractTrackingIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    []model.TrackingID
	}{
		{name: "no ids", content: `<html><body>hello</body></html>`},
		{
			name: "google ids",
			content: `<script async src="https://www.googletagmanager.com/gtag/js?id=G-ABCDEF1234"></script>
<script>gtag('config', 'G-ABCDEF1234'); gtag('config', 'UA-12345678-1');</script>
<!-- GTM-K9XYZ12 -->`,
			want: []model.TrackingID{
				{Type: "google_analytics_ga4", Value: "G-ABCDEF1234"},
				{Type: "google_analytics_ua", Value: "UA-12345678-1"},
				{Type: "google_tag_manager", Value: "GTM-K9XYZ12"},
			},
		},
		{
			name:    "facebook pixel capture group",
			content: `<script>fbq('init', '123456789012345'); fbq('track', 'PageView');</script>`,
			want:    []model.TrackingID{{Type: "facebook_pixel", Value: "123456789012345"}},
		},
		{
			name:    "adsense publisher",
			content: `<ins class="adsbygoogle" data-ad-client="ca-pub-1234567890123456"></ins>`,
			want:    []model.TrackingID{{Type: "google_adsense", Value: "ca-pub-1234567890123456"}},
		},
		{
			name:    "hotjar and matomo",
			content: `h._hjSettings={hjid:1234567,hjsv:6}; _paq.push(['setSiteId', '42']);`,
			want: []model.TrackingID{
				{Type: "hotjar", Value: "1234567"},
				{Type: "matomo", Value: "42"},
			},
		},
		{
			name:    "duplicates collapse",
			content: `UA-1234-1 UA-1234-1 UA-1234-1`,
			want:    []model.TrackingID{{Type: "google_analytics_ua", Value: "UA-1234-1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractTrackingIDs(tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
