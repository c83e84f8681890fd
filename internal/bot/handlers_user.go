package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"task-manager/internal/repository"
)

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "teman"
	}

	var greeting strings.Builder
	greeting.WriteString(fmt.Sprintf("👋 Halo, %s!\n<b>Saya asisten task manager: catat, kelompokkan, dan selesaikan task kamu.</b>\n\n", escape(name)))
	if user, ok := b.currentUser(msg.Chat.ID); ok {
		greeting.WriteString(fmt.Sprintf("Kamu masuk sebagai <b>%s</b>.\n", escape(user.DisplayName())))
	} else {
		greeting.WriteString("Mulai dengan /register &lt;username&gt; atau /login &lt;username&gt; (coba <code>/login demo</code>).\n")
	}
	greeting.WriteString("Ketik /help untuk daftar perintah.")
	return b.sendText(msg.Chat.ID, greeting.String())
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Perintah</b>\n" +
		"• /register &lt;username&gt; [email] [nama lengkap] - buat akun\n" +
		"• /login &lt;username&gt;, /logout, /users\n" +
		"• /newtask - tambah task langkah demi langkah\n" +
		"• /tasks [all|pending|completed|high|kategori] - daftar task\n" +
		"• /view &lt;no&gt; - detail task\n" +
		"• /done &lt;no&gt; - tandai selesai atau buka kembali\n" +
		"• /delete &lt;no&gt; - hapus task\n" +
		"• /note &lt;no&gt; &lt;teks&gt;, /tag &lt;no&gt; &lt;tag&gt;\n" +
		"• /assign &lt;no&gt; &lt;username&gt;, /category &lt;no&gt; &lt;kategori&gt;\n" +
		"• /priority &lt;no&gt; &lt;low|medium|high|urgent&gt;, /due &lt;no&gt; &lt;YYYY-MM-DD|hapus&gt;\n" +
		"• /hours &lt;no&gt; &lt;jam&gt; - catat jam kerja\n" +
		"• /search &lt;teks&gt;, /overdue, /duesoon [hari]\n" +
		"• /stats, /categories - statistik\n" +
		"• /export - unduh data JSON\n" +
		"• /report - kirim pengingat sekarang\n" +
		"• /cancel - batalkan input\n\n" +
		"&lt;no&gt; adalah nomor task dari daftar terakhir."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleRegister(ctx context.Context, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) == 0 {
		return b.sendText(msg.Chat.ID, "Format: /register &lt;username&gt; [email] [nama lengkap]")
	}

	in := repository.NewUserInput{Username: fields[0]}
	rest := fields[1:]
	if len(rest) > 0 && strings.Contains(rest[0], "@") {
		in.Email = rest[0]
		rest = rest[1:]
	}
	in.FullName = strings.Join(rest, " ")

	resp := b.app.UserService.Register(ctx, msg.Chat.ID, in)
	if !resp.Success {
		return b.sendText(msg.Chat.ID, "❌ "+escape(resp.Error))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ %s. Selamat datang, <b>%s</b>!", resp.Message, escape(resp.Data.DisplayName())))
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message) error {
	username := strings.TrimSpace(msg.CommandArguments())
	if username == "" {
		return b.sendText(msg.Chat.ID, "Format: /login &lt;username&gt;")
	}
	resp := b.app.UserService.Login(ctx, msg.Chat.ID, username)
	if !resp.Success {
		return b.sendText(msg.Chat.ID, "❌ "+escape(resp.Error))
	}
	log.WithFields(log.Fields{"chat": msg.Chat.ID, "user": resp.Data.ID}).Info("user logged in")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ %s sebagai <b>%s</b>.", resp.Message, escape(resp.Data.DisplayName())))
}

func (b *Bot) handleLogout(ctx context.Context, msg *tgbotapi.Message) error {
	b.clearConversation(msg.Chat.ID)
	b.clearConfirmation(msg.Chat.ID)
	resp := b.app.UserService.Logout(ctx, msg.Chat.ID)
	if !resp.Success {
		return b.sendText(msg.Chat.ID, escape(resp.Error))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("👋 %s. Sampai jumpa, %s!", resp.Message, escape(resp.Data.DisplayName())))
}

func (b *Bot) handleUsers(msg *tgbotapi.Message) error {
	if _, ok := b.currentUser(msg.Chat.ID); !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	resp := b.app.UserService.GetAllUsers()

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("👥 <b>Pengguna</b> (%d)\n", resp.Count))
	for _, user := range resp.Data {
		builder.WriteString(fmt.Sprintf("• <code>%s</code>", escape(user.Username)))
		if user.FullName != "" {
			builder.WriteString(" " + escape(user.FullName))
		}
		builder.WriteByte('\n')
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}
