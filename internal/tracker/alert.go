package tracker

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/dealwatch/pricewatch/internal/watch"
)

const alertSubject = "🚨 Price Drop Alert for Your Tracked Product!"

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
    body { font-family: Arial, sans-serif; margin: 0; padding: 0; background-color: #f9f9f9; color: #333; }
    .container { max-width: 600px; margin: 20px auto; background-color: #fff; padding: 20px; border: 1px solid #ddd; border-radius: 8px; }
    .header { text-align: center; border-bottom: 1px solid #ddd; padding-bottom: 10px; }
    .header h1 { margin: 0; color: #007BFF; }
    .content p { line-height: 1.6; font-size: 16px; }
    .content a { display: inline-block; margin-top: 10px; padding: 10px 20px; background-color: #007BFF; color: #fff; text-decoration: none; border-radius: 4px; font-weight: bold; }
    .footer { margin-top: 20px; text-align: center; font-size: 12px; color: #888; }
</style>
</head>
<body>
<div class="container">
    <div class="header">
    <h1>Price Drop Alert!</h1>
    </div>
    <div class="content">
    <h4>{{.Title}}</h4>
    <p>Good news! The price for the product you are tracking has dropped to <strong>{{.Price}}</strong>.</p>
    <p>Don't miss this opportunity to grab the product at a discounted price.</p>
    <a href="{{.URL}}" target="_blank">View Product</a>
    </div>
    <div class="footer">
    <p>You are receiving this email because you subscribed to price alerts on our platform.</p>
    <p>&copy; {{.Year}} Price Tracker Inc. All rights reserved.</p>
    </div>
</div>
</body>
</html>
`))

type alertData struct {
	Title string
	Price string
	URL   string
	Year  int
}

// buildAlert renders the notification payload for a fired watch. The contract
// only requires the title, extracted price, and URL to appear in the body.
func buildAlert(req watch.Request, price float64, now time.Time) (subject, body string, err error) {
	data := alertData{
		Title: req.Title,
		Price: formatPrice(price),
		URL:   req.URL,
		Year:  now.Year(),
	}
	var buf strings.Builder
	if err := alertTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render alert body: %w", err)
	}
	return alertSubject, buf.String(), nil
}

// formatPrice prints whole prices without a decimal tail.
func formatPrice(price float64) string {
	if price == float64(int64(price)) {
		return fmt.Sprintf("%d", int64(price))
	}
	return fmt.Sprintf("%.2f", price)
}
