package notification

import "html/template"

const brand = "BankLens"

const layout = `{{define "layout"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="text-align: center; margin-bottom: 30px;">
    <h1 style="color: #14b8a6; margin: 0;">{{.Brand}}</h1>
    <p style="color: #6b7280; margin: 10px 0;">Your Financial Consciousness</p>
  </div>
  <div style="background: #1f2937; border-radius: 12px; padding: 30px; margin-bottom: 20px;">
    {{template "content" .}}
  </div>
  <div style="text-align: center; color: #6b7280; font-size: 12px;">
    <p>&copy; {{.Year}} {{.Brand}}. Financial consciousness for the future.</p>
  </div>
</div>{{end}}`

const codeBlock = `{{define "code"}}<div style="text-align: center; margin: 30px 0;">
  <div style="display: inline-block; background: linear-gradient(135deg, #14b8a6, #06b6d4); color: white; font-size: 32px; font-weight: bold; padding: 20px 40px; border-radius: 12px; letter-spacing: 8px; font-family: 'Courier New', monospace;">{{.Code}}</div>
</div>
<p style="color: #9ca3af; font-size: 14px; text-align: center; margin: 0;">
  This code will expire in {{.ExpiryMinutes}} minutes. If you didn't request this code, please ignore this email.
</p>{{end}}`

const verifyContent = `{{define "content"}}<h2 style="color: #ffffff; margin: 0 0 20px 0; text-align: center;">Verify Your Email</h2>
<p style="color: #d1d5db; margin: 0 0 20px 0; text-align: center;">Use this verification code to complete your account setup:</p>
{{template "code" .}}{{end}}`

const resetContent = `{{define "content"}}<h2 style="color: #ffffff; margin: 0 0 20px 0; text-align: center;">Reset Your Passcode</h2>
<p style="color: #d1d5db; margin: 0 0 20px 0; text-align: center;">Use this code to reset your passcode:</p>
{{template "code" .}}{{end}}`

const genericContent = `{{define "content"}}<h2 style="color: #ffffff; margin: 0 0 20px 0; text-align: center;">Verification Code</h2>
<p style="color: #d1d5db; margin: 0 0 20px 0; text-align: center;">Your verification code is:</p>
{{template "code" .}}{{end}}`

const welcomeContent = `{{define "content"}}<h2 style="color: #ffffff; margin: 0 0 20px 0; text-align: center;">Welcome to {{.Brand}}!</h2>
<p style="color: #d1d5db; margin: 0 0 20px 0;">Hi {{.FirstName}},</p>
<p style="color: #d1d5db; margin: 0 0 20px 0;">Welcome to {{.Brand}}! Your account has been successfully created and your financial consciousness is now activated.</p>
<p style="color: #d1d5db; margin: 0;">Link a bank account to start exploring your transactions.</p>{{end}}`

func mustTemplate(content string) *template.Template {
	t := template.Must(template.New("email").Parse(layout))
	template.Must(t.Parse(codeBlock))
	return template.Must(t.Parse(content))
}

var templates = map[string]*template.Template{
	kindEmailVerification: mustTemplate(verifyContent),
	kindPasswordReset:     mustTemplate(resetContent),
	kindGenericOTP:        mustTemplate(genericContent),
	kindWelcome:           mustTemplate(welcomeContent),
}

var subjects = map[string]string{
	kindEmailVerification: "Verify Your Email - " + brand,
	kindPasswordReset:     "Reset Your Passcode - " + brand,
	kindGenericOTP:        "Verification Code - " + brand,
	kindWelcome:           "Welcome to " + brand + "!",
}
