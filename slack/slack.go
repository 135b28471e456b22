// Package slack posts finished shopping lists to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"auraagent"
	"auraagent/grocery"
	"auraagent/kitchen"
)

type Client struct {
	webhookURL string
	httpClient auraagent.HTTPClient
}

func NewClient(webhookURL string, httpClient auraagent.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

var shoppingListLabels = map[kitchen.Language]struct {
	title, prices, savings, none string
}{
	kitchen.English:    {"Shopping list", "Best nearby prices", "You save", "No nearby prices found"},
	kitchen.Vietnamese: {"Danh sách đi chợ", "Giá tốt gần bạn", "Tiết kiệm", "Không tìm thấy giá gần bạn"},
}

// ShoppingList renders a recipe's ingredients and the deals found for them as
// Slack mrkdwn.
func ShoppingList(recipe kitchen.Recipe, deals *grocery.Deals, lang kitchen.Language) string {
	labels, ok := shoppingListLabels[lang]
	if !ok {
		labels = shoppingListLabels[kitchen.English]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*🛒 %s: %s*\n", labels.title, recipe.Title.In(lang))
	for _, ing := range recipe.Ingredients {
		line := ing.Name.In(lang)
		if amount := strings.TrimSpace(ing.Amount); amount != "" {
			line = amount + " " + line
		}
		fmt.Fprintf(&b, "• %s\n", line)
	}

	if deals == nil || len(deals.Items) == 0 {
		if deals != nil {
			fmt.Fprintf(&b, "\n_%s_\n", labels.none)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "\n*%s*\n", labels.prices)
	for _, item := range deals.Items {
		best, ok := cheapest(item)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "• %s: %s @ %s %s (%.1f km)\n",
			item.Name.In(lang),
			grocery.FormatPrice(best.PriceVND, lang),
			best.Logo,
			best.StoreName.In(lang),
			best.DistanceKm)
	}
	if len(deals.BestDeals) > 0 {
		fmt.Fprintf(&b, "\n%s: *%s*\n", labels.savings, deals.TotalSavings)
	}
	return strings.TrimRight(b.String(), "\n")
}

func cheapest(item kitchen.GroceryItem) (kitchen.PricePoint, bool) {
	var best kitchen.PricePoint
	found := false
	for _, p := range item.Prices {
		if !found || p.PriceVND < best.PriceVND {
			best, found = p, true
		}
	}
	return best, found
}
