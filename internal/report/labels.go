package report

import "github.com/anatolykoptev/go_observe/internal/engine"

// Labels is the fixed wording of the rendered documents for one locale.
type Labels struct {
	AppName         string
	Title           string
	LinkLabel       string
	LinkPlaceholder string
	Analyze         string
	Loading         string
	Clear           string
	Print           string
	ErrorHeading    string
	InvalidLink     string
	AnalysisFailed  string
	Busy            string
	Overview        string
	EventsHeading   string
	Summary         string
	Item            string
	Observation     string
	Result          string
	Strengths       string
	Recommendations string
	Sources         string
	GeneratedAt     string
	Watch           string
	Player          string

	Events  map[string]string
	Ratings map[engine.Rating]string
}

var labels = map[string]*Labels{
	"th": {
		AppName:         "EduVision",
		Title:           "รายงานการนิเทศการสอน",
		LinkLabel:       "ลิงก์วิดีโอ YouTube",
		LinkPlaceholder: "วางลิงก์วิดีโอ YouTube (รองรับ Shorts, Live, Watch)...",
		Analyze:         "วิเคราะห์",
		Loading:         "AI กำลังวิเคราะห์...",
		Clear:           "ล้างผลลัพธ์",
		Print:           "พิมพ์รายงาน PDF",
		ErrorHeading:    "ข้อผิดพลาด",
		InvalidLink:     "กรุณาวางลิงก์วิดีโอ YouTube ที่ถูกต้องก่อนเริ่มการวิเคราะห์",
		AnalysisFailed:  "ไม่สามารถวิเคราะห์วิดีโอนี้ได้ในขณะนี้ โปรดตรวจสอบลิงก์หรือลองใหม่อีกครั้ง",
		Busy:            "กำลังวิเคราะห์วิดีโออยู่ โปรดรอให้เสร็จก่อน",
		Overview:        "ภาพรวมการสอน",
		EventsHeading:   "เหตุการณ์ที่สังเกตได้",
		Summary:         "ผลประเมินรายประเด็น",
		Item:            "ประเด็นสังเกต",
		Observation:     "รายละเอียดผลการสังเกตจริง",
		Result:          "ระดับคุณภาพ",
		Strengths:       "จุดเด่น",
		Recommendations: "ข้อเสนอแนะ",
		Sources:         "แหล่งอ้างอิง",
		GeneratedAt:     "วันที่จัดทำรายงาน",
		Watch:           "ดูวิดีโอ",
		Player:          "YouTube Video Player",
		Events: map[string]string{
			"teacherBehavior": "ครู & การถ่ายทอด",
			"studentBehavior": "พฤติกรรมนักเรียน",
			"activeLearning":  "การจัดการ Active Learning",
			"questioning":     "การใช้คำถาม",
			"relationships":   "ปฏิสัมพันธ์ในชั้นเรียน",
			"engagement":      "การมีส่วนร่วมของนักเรียน",
			"technology":      "นวัตกรรมสื่อการสอน",
			"assessment":      "การวัดและประเมินผล",
			"conclusion":      "การสรุปบทเรียน",
		},
		Ratings: map[engine.Rating]string{
			engine.RatingExcellent:        "ดีมาก",
			engine.RatingGood:             "ดี",
			engine.RatingNeedsImprovement: "ควรพัฒนา",
		},
	},
	"en": {
		AppName:         "EduVision",
		Title:           "Teaching supervision report",
		LinkLabel:       "YouTube video link",
		LinkPlaceholder: "Paste a YouTube link (watch, Shorts, Live)...",
		Analyze:         "Analyze",
		Loading:         "Analyzing...",
		Clear:           "Clear",
		Print:           "Print report",
		ErrorHeading:    "Error",
		InvalidLink:     "Please paste a valid YouTube video link before starting the analysis.",
		AnalysisFailed:  "This video cannot be analyzed right now. Check the link or try again.",
		Busy:            "An analysis is already running. Please wait for it to finish.",
		Overview:        "Teaching overview",
		EventsHeading:   "Observed events",
		Summary:         "Assessment by item",
		Item:            "Item",
		Observation:     "Observation",
		Result:          "Result",
		Strengths:       "Strengths",
		Recommendations: "Recommendations",
		Sources:         "Sources",
		GeneratedAt:     "Generated",
		Watch:           "Watch video",
		Player:          "YouTube Video Player",
		Events: map[string]string{
			"teacherBehavior": "Teacher and delivery",
			"studentBehavior": "Student behavior",
			"activeLearning":  "Active learning",
			"questioning":     "Questioning",
			"relationships":   "Classroom relationships",
			"engagement":      "Student engagement",
			"technology":      "Teaching media and technology",
			"assessment":      "Assessment",
			"conclusion":      "Lesson conclusion",
		},
		Ratings: map[engine.Rating]string{
			engine.RatingExcellent:        "Excellent",
			engine.RatingGood:             "Good",
			engine.RatingNeedsImprovement: "Needs improvement",
		},
	},
}

// For returns the labels of lang, falling back to the default locale.
func For(lang string) *Labels {
	if l, ok := labels[engine.NormLang(lang)]; ok {
		return l
	}
	return labels[engine.DefaultLang]
}

// Rating returns the localized label of r, or r itself when unknown.
func (l *Labels) Rating(r engine.Rating) string {
	if s, ok := l.Ratings[r]; ok {
		return s
	}
	return string(r)
}
