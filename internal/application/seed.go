package application

import "github.com/shopspring/decimal"

// SeedMembers returns the default member dataset used when nothing is stored.
func SeedMembers() []Member {
	return []Member{
		{ID: 1, Name: "John Smith", Email: "john.smith@email.com", Phone: "+1 (555) 123-4567", Plan: "Premium", StartDate: "2024-01-15", ExpiryDate: "2024-02-15", DueAmount: decimal.Zero, Status: MemberActive},
		{ID: 2, Name: "Sarah Johnson", Email: "sarah.j@email.com", Phone: "+1 (555) 987-6543", Plan: "Basic", StartDate: "2024-01-10", ExpiryDate: "2024-02-10", DueAmount: decimal.NewFromInt(50), Status: MemberPending},
		{ID: 3, Name: "Mike Wilson", Email: "mike.wilson@email.com", Phone: "+1 (555) 456-7890", Plan: "Premium", StartDate: "2023-12-20", ExpiryDate: "2024-01-20", DueAmount: decimal.Zero, Status: MemberExpired},
		{ID: 4, Name: "Emily Davis", Email: "emily.davis@email.com", Phone: "+1 (555) 234-5678", Plan: "Standard", StartDate: "2024-01-05", ExpiryDate: "2024-02-05", DueAmount: decimal.NewFromInt(25), Status: MemberActive},
	}
}

// SeedPlans returns the default plan catalogue.
func SeedPlans() []Plan {
	return []Plan{
		{ID: 1, Name: "Basic Plan", Duration: 1, Price: decimal.NewFromInt(30), Tax: decimal.NewFromInt(5), Description: "Perfect for beginners with access to basic equipment", Status: PlanActive},
		{ID: 2, Name: "Standard Plan", Duration: 3, Price: decimal.NewFromInt(80), Tax: decimal.NewFromInt(12), Description: "Great value with 3-month commitment", Status: PlanActive},
		{ID: 3, Name: "Premium Plan", Duration: 6, Price: decimal.NewFromInt(150), Tax: decimal.RequireFromString("22.5"), Description: "Best value with premium amenities access", Status: PlanActive},
		{ID: 4, Name: "Annual Elite", Duration: 12, Price: decimal.NewFromInt(280), Tax: decimal.NewFromInt(42), Description: "Full year access with all premium features", Status: PlanActive},
	}
}
