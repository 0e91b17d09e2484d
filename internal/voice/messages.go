package voice

const (
	statusReady     = "Sẵn sàng"
	statusListening = "Đang lắng nghe..."

	msgAwake        = "👋 Đã đánh thức! Tôi đang lắng nghe bạn..."
	msgListening    = "Đang nghe bạn nói... 👂\n\nNói rõ ràng bằng tiếng Việt. Nhấn nút mic lần nữa để dừng."
	msgNoSpeech     = "Chưa nghe thấy lời nói. Vui lòng nói lại..."
	msgNotAllowed   = "Vui lòng cho phép truy cập microphone trong cài đặt trình duyệt."
	msgAudioCapture = "Không tìm thấy microphone. Vui lòng kiểm tra thiết bị."
	msgNetwork      = "Lỗi kết nối mạng. Vui lòng kiểm tra kết nối internet."
	msgUnsupported  = "Trình duyệt của bạn không hỗ trợ nhận diện giọng nói."
	msgStartFailed  = "Không thể bắt đầu nhận diện giọng nói. Vui lòng thử lại."
	msgWakeOn       = "Đánh thức bằng giọng nói đã bật. Bạn có thể nói \"Trợ lý\" hoặc \"AI ơi\" để đánh thức tôi."
	msgWakeOff      = "Đánh thức bằng giọng nói đã tắt."
)
