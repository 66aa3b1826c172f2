package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking-platform/internal/bookings"
	"github.com/wolfman30/salon-booking-platform/internal/catalog"
)

const dayLabelLayout = "Mon 2 Jan"

func dayLabel(day time.Time) string {
	return day.Format(dayLabelLayout)
}

func numbered(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, item)
	}
	return sb.String()
}

func dateLabels(dates []string, loc *time.Location) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		t, err := time.ParseInLocation(time.DateOnly, d, loc)
		if err != nil {
			out = append(out, d)
			continue
		}
		out = append(out, dayLabel(t))
	}
	return out
}

func welcomeReply(salonName string, offerings []catalog.Offering) string {
	return fmt.Sprintf("Welcome to %s! Which service would you like to book?\n%s\nReply with a number or the service name.",
		salonName, catalog.FormatMenu(offerings))
}

func noServicesReply(salonName string) string {
	return fmt.Sprintf("Sorry, %s has no services open for booking right now. Please try again later.", salonName)
}

func serviceNotFoundReply(offerings []catalog.Offering) string {
	return fmt.Sprintf("Sorry, I couldn't find that service. Please reply with a number or a service name:\n%s",
		catalog.FormatMenu(offerings))
}

func noDatesReply(serviceName string, horizon int, offerings []catalog.Offering) string {
	return fmt.Sprintf("Sorry, %s has no free slots in the next %d days. Would you like a different service?\n%s",
		serviceName, horizon, catalog.FormatMenu(offerings))
}

func datePrompt(serviceName string, dates []string, loc *time.Location) string {
	return fmt.Sprintf("%s it is. Which date works for you?\n%s\nReply with a number, \"tomorrow\" or a date like 21 Oct.",
		serviceName, numbered(dateLabels(dates, loc)))
}

func dateNotUnderstoodReply(dates []string, loc *time.Location) string {
	return fmt.Sprintf("Sorry, I didn't catch a date there. Please choose one of these:\n%s\nor reply with a date like \"tomorrow\" or 21 Oct.",
		numbered(dateLabels(dates, loc)))
}

func datePastReply(dates []string, loc *time.Location) string {
	return fmt.Sprintf("That date has already passed. Please choose an upcoming date:\n%s", numbered(dateLabels(dates, loc)))
}

func dateBeyondHorizonReply(horizon int, dates []string, loc *time.Location) string {
	return fmt.Sprintf("We take bookings up to %d days ahead. Please choose a closer date:\n%s",
		horizon, numbered(dateLabels(dates, loc)))
}

func dateFullReply(serviceName string, day time.Time, dates []string, loc *time.Location) string {
	return fmt.Sprintf("Sorry, there are no free slots for %s on %s. These dates have availability:\n%s",
		serviceName, dayLabel(day), numbered(dateLabels(dates, loc)))
}

func timePrompt(serviceName string, day time.Time, times []string) string {
	return fmt.Sprintf("Available times for %s on %s:\n%s\nReply with a number or a time like 10:30 or 2pm.",
		serviceName, dayLabel(day), numbered(times))
}

func timeNotUnderstoodReply(day time.Time, times []string) string {
	return fmt.Sprintf("Sorry, I didn't catch a time there. Available times on %s:\n%s\nReply with a number or a time like 10:30 or 2pm.",
		dayLabel(day), numbered(times))
}

func timeTakenReply(clock string, day time.Time) string {
	return fmt.Sprintf("Sorry, %s on %s isn't available. Here are the open times:", clock, dayLabel(day))
}

func offGridReply(clock string, day time.Time, interval time.Duration) string {
	return fmt.Sprintf("Appointments start every %d minutes, so %s isn't a start time on %s. Here are the open times:",
		int(interval.Minutes()), clock, dayLabel(day))
}

func confirmPrompt(s *Session, offering catalog.Offering, day time.Time) string {
	return fmt.Sprintf("Please confirm: %s (%s, %d min) with %s on %s at %s.\nReply YES to book or NO to pick another time.",
		s.ServiceName, offering.Price(), offering.DurationMinutes, s.StaffName, dayLabel(day), s.Time)
}

func confirmNotUnderstoodReply(s *Session, day time.Time) string {
	return fmt.Sprintf("Reply YES to book %s with %s on %s at %s, NO to pick another time, or \"change date\" / \"change service\".",
		s.ServiceName, s.StaffName, dayLabel(day), s.Time)
}

func bookedReply(b bookings.Booking, day time.Time) string {
	return fmt.Sprintf("You're booked! %s with %s on %s at %s. Booking ID: %s.\nReply \"book\" any time to make another booking.",
		b.ServiceName, b.StaffName, dayLabel(day), b.ScheduledAt.Format("15:04"), b.ID)
}

func slotTakenReply(day time.Time) string {
	return fmt.Sprintf("Sorry, that slot was just taken. Here are the times still open on %s:", dayLabel(day))
}

func persistenceFailureReply() string {
	return "Sorry, something went wrong while saving your booking. Reply YES to try again."
}

func resetReply() string {
	return "No problem, I've cleared your booking. Send any message to start again."
}

func serviceHint(current string) string {
	return fmt.Sprintf("You've already picked %s. To switch services reply \"change service\".", current)
}

func helpReply(step Step) string {
	switch step {
	case StepAwaitingService:
		return "Reply with the number or name of the service you'd like. Say \"reset\" to start over."
	case StepAwaitingDate:
		return "Reply with a number from the date list, \"tomorrow\", a weekday or a date like 21 Oct. Say \"change service\" or \"reset\" to go back."
	case StepAwaitingTime:
		return "Reply with a number from the time list or a time like 10:30 or 2pm. Say \"change date\" or \"reset\" to go back."
	case StepAwaitingConfirmation:
		return "Reply YES to book, NO to pick another time, or \"change service\" / \"change date\" / \"change time\". Say \"reset\" to start over."
	default:
		return "Send any message to see our services and book an appointment."
	}
}

func changeServiceReply(offerings []catalog.Offering) string {
	return fmt.Sprintf("Sure. Which service would you like instead?\n%s", catalog.FormatMenu(offerings))
}

func serviceUnavailableReply(serviceName string, offerings []catalog.Offering) string {
	return fmt.Sprintf("Sorry, %s is no longer available. Please choose another service:\n%s", serviceName, catalog.FormatMenu(offerings))
}

func dateHint() string {
	return "To pick a different date reply \"change date\"."
}
