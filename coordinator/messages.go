package coordinator

import (
	"regexp"
	"strings"

	"auraagent/kitchen"
)

var (
	busyReply = kitchen.Text{
		EN: "The assistant is busy right now. Please wait a moment and try again.",
		VI: "Hệ thống đang bận. Vui lòng đợi một chút rồi thử lại.",
	}
	genericReply = kitchen.Text{
		EN: "Sorry, something went wrong while preparing your answer. Please try again.",
		VI: "Xin lỗi, đã có lỗi xảy ra khi xử lý yêu cầu của bạn. Vui lòng thử lại.",
	}
	emptyReply = kitchen.Text{
		EN: "Sorry, I didn't understand. Try asking about recipes or upload a photo of ingredients!",
		VI: "Xin lỗi, tôi không hiểu yêu cầu. Bạn có thể hỏi về công thức nấu ăn hoặc tải ảnh nguyên liệu!",
	}
	imageInstruction = kitchen.Text{
		EN: "A photo is attached. First look at it and call analyze_ingredients with the ingredients you can see, then continue.",
		VI: "Có một ảnh đính kèm. Hãy xem ảnh trước và gọi analyze_ingredients với các nguyên liệu bạn thấy, sau đó tiếp tục.",
	}
)

// Canned replies used when no LLM backend is configured.
var (
	greetingReply = kitchen.Text{
		EN: "Hello! I'm Aura AI, your cooking assistant. What would you like to cook today? 🍳",
		VI: "Xin chào! Tôi là Aura AI, trợ lý nấu ăn của bạn. Hãy cho tôi biết bạn muốn nấu gì hôm nay? 🍳",
	}
	helpReply = kitchen.Text{
		EN: "I can help you:\n• 📸 Analyze ingredient photos\n• 🍳 Suggest recipes\n• 🛒 Find the best grocery prices\n\nTry: \"Suggest a chicken recipe!\" or upload a photo of your fridge!",
		VI: "Tôi có thể giúp bạn:\n• 📸 Phân tích ảnh nguyên liệu\n• 🍳 Gợi ý công thức nấu ăn\n• 🛒 Tìm giá tốt nhất cho nguyên liệu\n\nHãy thử: \"Gợi ý món gà ngon đi!\" hoặc tải ảnh tủ lạnh của bạn!",
	}
	thanksReply = kitchen.Text{
		EN: "You're welcome! Enjoy your cooking! 👨‍🍳",
		VI: "Không có gì! Chúc bạn nấu ăn ngon miệng! 👨‍🍳",
	}
	configureReply = kitchen.Text{
		EN: "The AI assistant is not configured yet. Please configure an LLM backend (set LLM_BACKEND) to get recipe suggestions. Meanwhile, say \"help\" to see what I can do.",
		VI: "Trợ lý AI chưa được cấu hình. Vui lòng cấu hình LLM backend (đặt LLM_BACKEND) để nhận gợi ý món ăn. Trong lúc chờ, hãy gõ \"giúp\" để xem tôi có thể làm gì.",
	}
)

var (
	greetingPattern = regexp.MustCompile(`^(hi|hello|hey|xin chào|chào)`)
	helpPattern     = regexp.MustCompile(`help|giúp`)
	thanksPattern   = regexp.MustCompile(`thank|cảm ơn`)
)

// DegradedReply answers greetings, help and thanks without a model. Anything
// else gets a request to configure a backend.
func DegradedReply(message string, lang kitchen.Language) string {
	msg := strings.ToLower(strings.TrimSpace(message))
	switch {
	case greetingPattern.MatchString(msg):
		return greetingReply.In(lang)
	case helpPattern.MatchString(msg):
		return helpReply.In(lang)
	case thanksPattern.MatchString(msg):
		return thanksReply.In(lang)
	default:
		return configureReply.In(lang)
	}
}
