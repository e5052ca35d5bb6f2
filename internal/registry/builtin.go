package registry

import "github.com/nao1215/pixelscan/internal/model"

type entry struct {
	company  string
	category string
	risk     model.RiskLevel
	gdpr     bool
	ccpa     bool
	domains  []string
}

// builtinEntries is the tracker intelligence shipped with pixelscan.
// Entries are grouped by company; each domain becomes one DomainRecord.
var builtinEntries = []entry{
	// Analytics
	{"Google Analytics", model.CategoryAnalytics, model.RiskMedium, true, true,
		[]string{"google-analytics.com", "googletagmanager.com", "analytics.google.com"}},
	{"Adobe Analytics", model.CategoryAnalytics, model.RiskMedium, true, true,
		[]string{"omtrdc.net", "demdex.net", "everesttech.net", "2o7.net", "omniture.com"}},
	{"Mixpanel", model.CategoryAnalytics, model.RiskMedium, true, true,
		[]string{"mixpanel.com", "mxpnl.com"}},
	{"Amplitude", model.CategoryAnalytics, model.RiskMedium, true, true,
		[]string{"amplitude.com"}},
	{"Segment", model.CategoryAnalytics, model.RiskMedium, true, true,
		[]string{"segment.io", "segment.com"}},
	{"Heap", model.CategoryAnalytics, model.RiskMedium, true, true,
		[]string{"heap.io", "heapanalytics.com"}},
	{"Kissmetrics", model.CategoryAnalytics, model.RiskMedium, true, true,
		[]string{"kissmetrics.com"}},
	{"Chartbeat", model.CategoryAnalytics, model.RiskMedium, true, true,
		[]string{"chartbeat.com", "chartbeat.net"}},
	{"Comscore", model.CategoryAnalytics, model.RiskHigh, true, true,
		[]string{"scorecardresearch.com"}},
	{"Quantcast", model.CategoryAnalytics, model.RiskHigh, true, true,
		[]string{"quantserve.com", "quantcast.com"}},

	// Advertising
	{"Google Ads / DoubleClick", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"doubleclick.net", "googleadservices.com", "googlesyndication.com"}},
	{"Amazon Advertising", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"amazon-adsystem.com"}},
	{"Microsoft Advertising", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"bat.bing.com", "bingads.com"}},
	{"Criteo", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"criteo.com", "criteo.net"}},
	{"Xandr (AppNexus)", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"adnxs.com"}},
	{"Taboola", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"taboola.com"}},
	{"Outbrain", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"outbrain.com"}},
	{"AdRoll", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"adroll.com"}},
	{"Oracle BlueKai", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"bluekai.com"}},
	{"OpenX", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"openx.net"}},
	{"Magnite", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"rubiconproject.com"}},
	{"MediaMath", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"mathtag.com"}},
	{"LiveRamp", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"rlcdn.com"}},
	{"Lotame", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"crwdcntrl.net"}},
	{"Casale Media", model.CategoryAdvertising, model.RiskHigh, true, true,
		[]string{"casalemedia.com"}},
	{"DoubleVerify", model.CategoryAdvertising, model.RiskMedium, true, true,
		[]string{"doubleverify.com"}},
	{"Moat", model.CategoryAdvertising, model.RiskMedium, true, true,
		[]string{"moatads.com", "moat.com"}},

	// Social advertising
	{"Facebook Pixel", model.CategorySocialAdvertising, model.RiskHigh, true, true,
		[]string{"facebook.com", "connect.facebook.net", "facebook.net"}},
	{"Twitter Ads", model.CategorySocialAdvertising, model.RiskHigh, true, true,
		[]string{"analytics.twitter.com", "ads-twitter.com", "t.co"}},
	{"LinkedIn Insight Tag", model.CategorySocialAdvertising, model.RiskMedium, true, true,
		[]string{"snap.licdn.com", "px.ads.linkedin.com", "linkedin.com"}},
	{"Pinterest Tag", model.CategorySocialAdvertising, model.RiskMedium, true, true,
		[]string{"ct.pinterest.com", "pinterest.com"}},
	{"Snapchat Pixel", model.CategorySocialAdvertising, model.RiskMedium, true, true,
		[]string{"tr.snapchat.com", "sc-static.net"}},
	{"TikTok Pixel", model.CategorySocialAdvertising, model.RiskHigh, true, true,
		[]string{"analytics.tiktok.com", "tiktok.com"}},
	{"Reddit Pixel", model.CategorySocialAdvertising, model.RiskMedium, true, true,
		[]string{"redditstatic.com", "alb.reddit.com"}},
	{"AddThis", model.CategorySocialMedia, model.RiskMedium, true, true,
		[]string{"addthis.com"}},
	{"ShareThis", model.CategorySocialMedia, model.RiskMedium, true, true,
		[]string{"sharethis.com"}},
	{"Open Graph Protocol", model.CategorySocialMedia, model.RiskLow, false, false,
		[]string{"ogp.me"}},

	// Session recording and UX
	{"Hotjar", model.CategoryUserExperience, model.RiskHigh, true, true,
		[]string{"hotjar.com", "hotjar.io"}},
	{"FullStory", model.CategoryUserExperience, model.RiskHigh, true, true,
		[]string{"fullstory.com"}},
	{"Microsoft Clarity", model.CategoryUserExperience, model.RiskHigh, true, true,
		[]string{"clarity.ms"}},
	{"Crazy Egg", model.CategoryUserExperience, model.RiskMedium, true, true,
		[]string{"crazyegg.com"}},
	{"Mouseflow", model.CategoryUserExperience, model.RiskHigh, true, true,
		[]string{"mouseflow.com"}},
	{"LogRocket", model.CategoryUserExperience, model.RiskHigh, true, true,
		[]string{"logrocket.com", "lr-ingest.io"}},
	{"Inspectlet", model.CategoryUserExperience, model.RiskHigh, true, true,
		[]string{"inspectlet.com"}},

	// Optimization
	{"Optimizely", model.CategoryOptimization, model.RiskMedium, true, true,
		[]string{"optimizely.com"}},
	{"VWO", model.CategoryOptimization, model.RiskMedium, true, true,
		[]string{"vwo.com", "visualwebsiteoptimizer.com"}},

	// Marketing automation
	{"HubSpot", model.CategoryMarketingAutomation, model.RiskMedium, true, true,
		[]string{"hs-scripts.com", "hs-analytics.net", "hubspot.com"}},
	{"Marketo", model.CategoryMarketingAutomation, model.RiskMedium, true, true,
		[]string{"marketo.com", "marketo.net", "mktoresp.com"}},
	{"Salesforce Pardot", model.CategoryMarketingAutomation, model.RiskMedium, true, true,
		[]string{"pardot.com"}},
	{"Mailchimp", model.CategoryMarketingAutomation, model.RiskMedium, true, true,
		[]string{"list-manage.com", "mailchimp.com"}},
	{"Klaviyo", model.CategoryMarketingAutomation, model.RiskMedium, true, true,
		[]string{"klaviyo.com"}},
	{"Intercom", model.CategoryMarketingAutomation, model.RiskMedium, true, true,
		[]string{"intercom.io", "intercomcdn.com"}},

	// Performance monitoring
	{"New Relic", model.CategoryPerformance, model.RiskLow, false, false,
		[]string{"js-agent.newrelic.com", "bam.nr-data.net", "nr-data.net"}},
	{"Sentry", model.CategoryPerformance, model.RiskLow, false, false,
		[]string{"sentry.io", "sentry-cdn.com"}},
	{"Bugsnag", model.CategoryPerformance, model.RiskLow, false, false,
		[]string{"bugsnag.com"}},

	// Mobile attribution
	{"AppsFlyer", model.CategoryMarketingAutomation, model.RiskHigh, true, true,
		[]string{"appsflyer.com"}},
	{"Branch", model.CategoryMarketingAutomation, model.RiskMedium, true, true,
		[]string{"branch.io"}},

	// E-commerce
	{"TikTok Shop Pixel", model.CategoryECommerce, model.RiskHigh, true, true,
		[]string{"shop.tiktok.com"}},

	// Search engine verification endpoints
	{"Google Search Console", model.CategorySiteVerification, model.RiskLow, false, false,
		[]string{"google.com"}},
	{"Bing Webmaster Tools", model.CategorySiteVerification, model.RiskLow, false, false,
		[]string{"bing.com"}},
	{"Yandex Webmaster", model.CategorySiteVerification, model.RiskLow, false, false,
		[]string{"yandex.ru", "yandex.com"}},
	{"Baidu Webmaster", model.CategorySiteVerification, model.RiskLow, false, false,
		[]string{"baidu.com"}},
}

// BuiltinRecords returns one DomainRecord per built-in domain.
// When a domain appears in more than one entry, the first entry wins.
func BuiltinRecords() []model.DomainRecord {
	seen := make(map[string]bool)
	records := make([]model.DomainRecord, 0, len(builtinEntries)*2)
	for _, e := range builtinEntries {
		for _, d := range e.domains {
			if seen[d] {
				continue
			}
			seen[d] = true
			records = append(records, model.DomainRecord{
				Domain:       d,
				Company:      e.company,
				Category:     e.category,
				RiskLevel:    e.risk,
				GDPRRelevant: e.gdpr,
				CCPARelevant: e.ccpa,
			})
		}
	}
	return records
}
