package responder

import "strings"

// Canned replies keyed by intent. The customer base writes mostly Arabic
// with occasional Latin-script keywords, so both are matched.
const (
	fallbackBooking = "أهلاً بك! لحجز رحلة يرجى تزويدنا بوجهة السفر وتاريخ الرحلة وعدد المسافرين، وسيتواصل معك أحد موظفينا فوراً."
	fallbackStatus  = "للاستعلام عن حالة حجزك يرجى إرسال رقم الحجز وسنوافيك بالتفاصيل في أقرب وقت."
	fallbackPrice   = "تختلف الأسعار حسب الوجهة والتاريخ. أرسل لنا وجهتك وتاريخ سفرك لنزودك بأفضل عرض."
	fallbackThanks  = "شكراً لتواصلك معنا! نسعد بخدمتك في أي وقت."
	fallbackDefault = "أهلاً بك في وكالتنا للسفر والسياحة! كيف يمكننا مساعدتك؟ يمكنك الاستفسار عن الحجوزات والأسعار وحالة رحلتك."
)

var fallbackKeywords = []struct {
	reply    string
	keywords []string
}{
	{fallbackBooking, []string{"حجز", "احجز", "رحلة", "تذكرة", "تذاكر", "book", "flight", "ticket"}},
	{fallbackStatus, []string{"حالة", "حالتي", "وين", "متى", "status", "where"}},
	{fallbackPrice, []string{"سعر", "اسعار", "أسعار", "كم", "تكلفة", "price", "cost"}},
	{fallbackThanks, []string{"شكرا", "شكراً", "مشكور", "يعطيك", "thank", "thanks"}},
}

// Fallback returns a deterministic keyword-matched canned reply. It never
// returns an empty string, so a responder outage still yields an answer.
func Fallback(text string) string {
	lowered := strings.ToLower(text)
	for _, class := range fallbackKeywords {
		for _, kw := range class.keywords {
			if strings.Contains(lowered, kw) {
				return class.reply
			}
		}
	}
	return fallbackDefault
}
