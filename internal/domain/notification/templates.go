package notification

import (
	"fmt"
	"html"
	"strings"
)

// FormatMoney renders cents as "$1,234.50".
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func bookingLines(b BookingInfo) []string {
	lines := []string{
		"Reference: " + b.Reference,
		"Customer: " + b.CustomerName,
		"Email: " + b.Email,
		"Phone: " + orDefault(b.Phone, "Not provided"),
		"Tour: " + b.TourTitle,
		"Date: " + orDefault(b.Date, "To be arranged"),
		"Time: " + orDefault(b.Time, "To be confirmed"),
		fmt.Sprintf("Travelers: %d", b.Travelers),
		"Total: " + FormatMoney(b.TotalAmount) + " USD",
		"Status: " + strings.ToUpper(b.Status),
	}
	if b.SpecialRequests != "" {
		lines = append(lines, "Special Requests: "+b.SpecialRequests)
	}
	return lines
}

func render(to, subject, heading string, paragraphs []string, details []string) Email {
	var text strings.Builder
	text.WriteString(heading + "\n\n")
	for _, p := range paragraphs {
		text.WriteString(p + "\n\n")
	}
	for _, d := range details {
		text.WriteString(d + "\n")
	}

	var h strings.Builder
	h.WriteString("<h2>" + html.EscapeString(heading) + "</h2>")
	for _, p := range paragraphs {
		h.WriteString("<p>" + html.EscapeString(p) + "</p>")
	}
	if len(details) > 0 {
		h.WriteString("<ul>")
		for _, d := range details {
			h.WriteString("<li>" + html.EscapeString(d) + "</li>")
		}
		h.WriteString("</ul>")
	}

	return Email{To: to, Subject: subject, Text: text.String(), HTML: h.String()}
}

func customerEmail(b BookingInfo, kind Kind, detail string) (Email, error) {
	greeting := fmt.Sprintf("Dear %s,", b.CustomerName)
	switch kind {
	case KindBookingCreated:
		return render(b.Email, "Booking Confirmation - "+b.Reference, "Thank you for your booking!",
			[]string{greeting, "We have received your booking request. Our team will contact you shortly to confirm the details."},
			bookingLines(b)), nil
	case KindBookingCancelled:
		return render(b.Email, "Booking Cancellation - "+b.Reference, "Your booking has been cancelled",
			[]string{greeting, "Your booking has been cancelled as requested. Any refund due will be processed to the original payment method."},
			bookingLines(b)), nil
	case KindAdminConfirmation:
		return render(b.Email, "Booking Confirmed - "+b.Reference, "Your Booking is Confirmed!",
			[]string{greeting, "Great news! Your booking has been confirmed by our team.", "We will contact you soon with more details about your tour."},
			bookingLines(b)), nil
	case KindAdminDecline:
		return render(b.Email, "Booking Update - "+b.Reference, "Booking Update",
			[]string{greeting, "We regret to inform you that your booking has been cancelled.", "Reason: " + detail, "If you have any questions, please contact us."},
			bookingLines(b)), nil
	default:
		return Email{}, fmt.Errorf("%w: %s for customer", ErrUnsupportedKind, kind)
	}
}

func ownerEmail(to string, b BookingInfo, kind Kind, extra string) Email {
	var subject, action string
	switch kind {
	case KindNewBooking:
		subject, action = "New Booking - "+b.Reference, "A new booking has been created"
	case KindCancellation:
		subject, action = "Booking Cancelled - "+b.Reference, "A booking has been cancelled"
	case KindAdminConfirmation:
		subject, action = "Booking Confirmed by Admin - "+b.Reference, "You have confirmed this booking"
	case KindAdminDecline:
		subject, action = "Booking Declined by Admin - "+b.Reference, "You have declined this booking"
	default:
		subject, action = "Booking Update - "+b.Reference, "Booking status has been updated"
	}

	var paragraphs []string
	if extra != "" {
		paragraphs = append(paragraphs, "Additional Info: "+extra)
	}
	return render(to, subject, action, paragraphs, bookingLines(b))
}

func staffMessageEmail(to string, m MessageInfo) Email {
	return render(to, "New Customer Message from "+m.SenderName, "New chat message",
		[]string{m.Text},
		[]string{
			"From: " + m.SenderName,
			"Email: " + m.SenderEmail,
			fmt.Sprintf("Conversation: %d", m.ConversationID),
		})
}

func contactOwnerEmail(to string, c ContactInfo) Email {
	return render(to, "[CONTACT FORM] "+c.Subject, "New contact form submission",
		[]string{c.Message},
		[]string{
			"Name: " + c.Name,
			"Email: " + c.Email,
			"Phone: " + orDefault(c.Phone, "Not provided"),
		})
}

func contactReplyEmail(c ContactInfo) Email {
	return render(c.Email, "Thank you for contacting us", "We received your message",
		[]string{
			fmt.Sprintf("Dear %s,", c.Name),
			"Thank you for reaching out. Our team will reply within 24 hours.",
		},
		[]string{"Subject: " + c.Subject})
}
