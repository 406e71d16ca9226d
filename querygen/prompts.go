package querygen

import (
	"fmt"
	"strings"
)

func queriesPrompt(title, description string, targetProfiles []string, count int) string {
	audience := strings.Join(targetProfiles, ", ")
	if audience == "" {
		audience = "anyone who has the problem this product solves"
	}
	return fmt.Sprintf(`You're an expert in online user acquisition. Based on the following product, suggest %d search queries that people in the target audience might post on Google, Reddit, or Quora to find solutions this product addresses.

Product: %q
Description: %q
Target audience: %s

Return a plain JSON array of strings like:
["how to manage employee time", "tools for remote team coordination"]
`, count, title, description, audience)
}

func profilesPrompt(title, description string) string {
	return fmt.Sprintf(`You're an expert in user research and product marketing.

Based on the following product:

Project Name: %s
Description: %s

List 5 to 10 Ideal Customer Profiles (ICPs), types of people or professionals who would benefit most from this product.

Return only the list in JSON array format. No explanation or additional text.

Example:
["Freelancers", "Remote team managers", "HR professionals", "Small business owners"]
`, title, description)
}
