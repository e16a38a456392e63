package mapper

import (
	"household-api/modules/calendar/dto"
	"household-api/modules/calendar/entity"
)

func ToEventResponse(event *entity.CalendarEvent) *dto.CalendarEventResponse {
	resp := &dto.CalendarEventResponse{
		ID:                    event.ID.String(),
		TenantID:              event.TenantID.String(),
		Title:                 event.Title,
		Description:           event.Description,
		Location:              event.Location,
		StartTime:             event.StartTime.UTC(),
		EndTime:               event.EndTime.UTC(),
		IsAllDay:              event.IsAllDay,
		RecurrenceRule:        event.RecurrenceRule,
		ReminderMinutesBefore: event.ReminderMinutesBefore,
		CreatedByUserID:       event.CreatedByUserID.String(),
		Members:               make([]dto.MemberResponse, 0, len(event.Members)),
		CreatedAt:             event.CreatedAt,
		UpdatedAt:             event.UpdatedAt,
	}
	if event.RecurrenceEndDate != nil {
		d := event.RecurrenceEndDate.UTC().Format(dto.DateLayout)
		resp.RecurrenceEndDate = &d
	}
	for _, m := range event.Members {
		resp.Members = append(resp.Members, dto.MemberResponse{
			UserID:            m.UserID.String(),
			ParticipationType: string(m.ParticipationType),
		})
	}
	return resp
}

func ToOccurrenceResponses(items []entity.CalendarOccurrence) []dto.CalendarOccurrenceResponse {
	out := make([]dto.CalendarOccurrenceResponse, 0, len(items))
	for _, o := range items {
		out = append(out, dto.CalendarOccurrenceResponse{
			EventID:           o.EventID.String(),
			OriginalStartTime: o.OriginalStartTime,
			StartTime:         o.OccurrenceStart,
			EndTime:           o.OccurrenceEnd,
			Title:             o.Title,
			Description:       o.Description,
			Location:          o.Location,
			IsAllDay:          o.IsAllDay,
			IsException:       o.IsException,
			Source:            string(o.SourceKind),
		})
	}
	return out
}

func ToBusyInterval(iv entity.FreeBusyInterval) dto.BusyInterval {
	return dto.BusyInterval{
		Start:   iv.Start,
		End:     iv.End,
		Source:  string(iv.Source),
		EventID: iv.EventID.String(),
	}
}

func ToSlotResponses(slots []entity.AvailableSlot) []dto.AvailableSlotResponse {
	out := make([]dto.AvailableSlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, dto.AvailableSlotResponse{Start: s.Start, End: s.End})
	}
	return out
}
