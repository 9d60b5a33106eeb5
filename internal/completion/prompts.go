package completion

import (
	"fmt"

	"github.com/your-org/email-triage/internal/classifier"
)

const classificationSystemPrompt = "Você é um classificador especializado em " +
	"emails corporativos do setor financeiro. Responda APENAS com 'Productive' " +
	"ou 'Unproductive'."

const replySystemPrompt = "Você é um assistente de uma grande empresa do setor " +
	"financeiro. Gere respostas formais, educadas e profissionais."

// buildClassificationPrompt renders the fixed classification instruction
// around an already-truncated email excerpt.
func buildClassificationPrompt(excerpt string) string {
	return fmt.Sprintf(`Classifique o seguinte email corporativo em uma das categorias:

**Productive**: Emails que requerem ação ou resposta
- Solicitações de suporte técnico
- Dúvidas sobre processos ou sistemas
- Atualizações sobre casos/requisições em andamento
- Pedidos de documentos ou informações
- Questões relacionadas a transações financeiras

**Unproductive**: Emails que não requerem ação imediata
- Felicitações (aniversário, natal, etc)
- Mensagens de agradecimento genéricas
- Promoções comerciais
- Spam ou correntes
- Mensagens pessoais sem relação com trabalho

EMAIL:
%s

RESPONDA APENAS: "Productive" ou "Unproductive"`, excerpt)
}

// buildReplyPrompt renders the reply-generation instruction for the given
// category around an already-truncated email excerpt.
func buildReplyPrompt(category classifier.Category, excerpt string) string {
	var framing string
	if category == classifier.Productive {
		framing = `O email REQUER AÇÃO. Gere uma resposta formal que:
- Agradeça o contato
- Confirme o recebimento da solicitação
- Informe que a equipe irá analisar e responder em breve
- Seja educada e profissional`
	} else {
		framing = `O email é uma MENSAGEM CORDIAL, sem ação necessária. Gere uma resposta breve que:
- Agradeça a mensagem
- Seja cordial e amigável
- Mantenha formalidade corporativa`
	}

	return fmt.Sprintf(`%s

EMAIL ORIGINAL:
%s

Gere APENAS o corpo da resposta, sem assunto ou assinatura completa.`, framing, excerpt)
}
