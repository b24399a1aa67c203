package dataset

var (
	months   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	quarters = []string{"Q1 2023", "Q2 2023", "Q3 2023", "Q4 2023", "Q1 2024", "Q2 2024", "Q3 2024", "Q4 2024"}
	weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	hours    = []string{
		"12a", "1a", "2a", "3a", "4a", "5a", "6a", "7a", "8a", "9a", "10a", "11a",
		"12p", "1p", "2p", "3p", "4p", "5p", "6p", "7p", "8p", "9p", "10p", "11p",
	}
	products = []string{
		"Laptops", "Phones", "Tablets", "Monitors", "Keyboards", "Headphones",
		"Cameras", "Printers", "Speakers", "Routers", "Watches", "Drones",
	}
	segments = []string{
		"Electronics", "Clothing", "Groceries", "Home", "Sports", "Books",
		"Beauty", "Toys", "Automotive", "Garden",
	}
	funnelStages = []string{"Visits", "Sign-ups", "Trials", "Purchases", "Renewals", "Referrals"}
	words        = []string{
		"growth", "revenue", "customer", "market", "cloud", "data", "insight",
		"product", "design", "launch", "team", "strategy", "quality", "speed",
		"platform", "mobile", "service", "support", "value", "trust", "brand",
		"scale", "energy", "impact", "future", "network", "vision", "agile",
		"security", "analytics", "innovation", "partner", "global", "retail",
		"logistics", "finance", "health", "travel", "media", "search",
	}
	gauges     = []string{"Completion", "Utilization", "Satisfaction", "Uptime", "Efficiency"}
	profiles   = []string{"Product A", "Product B", "Product C", "Team North", "Team South", "Team East", "Team West", "Baseline"}
	treeLevels = []string{
		"Engineering", "Sales", "Marketing", "Finance", "Operations", "Support",
		"Research", "Legal", "Design", "People",
	}
	flowNodes = []string{
		"Coal", "Gas", "Solar", "Wind", "Hydro", "Nuclear", "Grid", "Storage",
		"Industry", "Homes", "Transport", "Commercial", "Export", "Losses",
	}
	streams = []string{"Search", "Social", "Email", "Direct"}
)

type city struct {
	name     string
	lng, lat float64
}

var cities = []city{
	{"Beijing", 116.40, 39.90}, {"Shanghai", 121.47, 31.23}, {"Tokyo", 139.69, 35.69},
	{"Seoul", 126.98, 37.57}, {"Singapore", 103.82, 1.35}, {"Mumbai", 72.88, 19.08},
	{"Dubai", 55.27, 25.20}, {"Istanbul", 28.98, 41.01}, {"Moscow", 37.62, 55.76},
	{"Berlin", 13.40, 52.52}, {"Paris", 2.35, 48.86}, {"London", -0.13, 51.51},
	{"Madrid", -3.70, 40.42}, {"Rome", 12.50, 41.90}, {"Cairo", 31.24, 30.04},
	{"Lagos", 3.38, 6.52}, {"Nairobi", 36.82, -1.29}, {"Johannesburg", 28.05, -26.20},
	{"Sydney", 151.21, -33.87}, {"Melbourne", 144.96, -37.81}, {"Auckland", 174.76, -36.85},
	{"New York", -74.01, 40.71}, {"Chicago", -87.63, 41.88}, {"Toronto", -79.38, 43.65},
	{"Los Angeles", -118.24, 34.05}, {"Mexico City", -99.13, 19.43}, {"Bogota", -74.07, 4.71},
	{"Lima", -77.04, -12.05}, {"Sao Paulo", -46.63, -23.55}, {"Buenos Aires", -58.38, -34.60},
}
